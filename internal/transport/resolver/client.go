package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"horizon.run/internal/engine/asset"
)

// Client fetches template documents from a resolver service over a single
// websocket. Implements asset.Loader. Requests are serialized on the
// connection; the registry's fetch goroutines provide the concurrency and
// its backoff provides retry, so the client itself stays dumb: one request,
// one response, reconnect on the next call after any error.
type Client struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
	seq  int64
}

func NewClient(url string) *Client {
	return &Client{url: url}
}

func (c *Client) LoadTemplate(ctx context.Context, name string) (*asset.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.dialLocked(ctx); err != nil {
			return nil, err
		}
	}
	doc, err := c.requestLocked(ctx, name)
	if err != nil {
		// Drop the connection; the next call redials.
		_ = c.conn.Close()
		c.conn = nil
	}
	return doc, err
}

func (c *Client) dialLocked(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("resolver dial: %w", err)
	}

	hello := HelloMsg{Type: TypeHello, ProtocolVersion: Version, Client: "horizon.run"}
	if err := writeJSON(ctx, conn, hello); err != nil {
		_ = conn.Close()
		return fmt.Errorf("resolver hello: %w", err)
	}
	msg, err := readMessage(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("resolver welcome: %w", err)
	}
	base, err := DecodeBase(msg)
	if err != nil || base.Type != TypeWelcome {
		_ = conn.Close()
		return fmt.Errorf("resolver: expected WELCOME, got %q", base.Type)
	}
	if base.ProtocolVersion != Version {
		_ = conn.Close()
		return fmt.Errorf("resolver: protocol version mismatch: %s", base.ProtocolVersion)
	}
	c.conn = conn
	return nil
}

func (c *Client) requestLocked(ctx context.Context, name string) (*asset.Document, error) {
	c.seq++
	reqID := fmt.Sprintf("R%d", c.seq)
	req := RequestMsg{Type: TypeRequest, ProtocolVersion: Version, ReqID: reqID, Name: name}
	if err := writeJSON(ctx, c.conn, req); err != nil {
		return nil, fmt.Errorf("resolver request %s: %w", name, err)
	}

	for {
		msg, err := readMessage(ctx, c.conn)
		if err != nil {
			return nil, fmt.Errorf("resolver read %s: %w", name, err)
		}
		base, err := DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case TypeTemplate:
			var tm TemplateMsg
			if err := json.Unmarshal(msg, &tm); err != nil {
				return nil, fmt.Errorf("resolver template %s: %w", name, err)
			}
			if tm.ReqID != reqID {
				continue // stale response from a dropped request
			}
			if err := validateDocument(tm.Doc); err != nil {
				return nil, err
			}
			doc, err := asset.DecodeDocument(tm.Doc)
			if err != nil {
				return nil, err
			}
			if doc.Name != name {
				return nil, fmt.Errorf("resolver: asked for %s, got %s", name, doc.Name)
			}
			return doc, nil
		case TypeError:
			var em ErrorMsg
			if err := json.Unmarshal(msg, &em); err != nil {
				return nil, fmt.Errorf("resolver error %s: %w", name, err)
			}
			if em.ReqID != "" && em.ReqID != reqID {
				continue
			}
			return nil, fmt.Errorf("resolver: %s: %s %s", name, em.Code, em.Message)
		default:
			continue
		}
	}
}

// Close drops the connection if one is up.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(deadlineFrom(ctx, 5*time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func readMessage(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	_ = conn.SetReadDeadline(deadlineFrom(ctx, 10*time.Second))
	_, msg, err := conn.ReadMessage()
	return msg, err
}

func deadlineFrom(ctx context.Context, fallback time.Duration) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(fallback)
}
