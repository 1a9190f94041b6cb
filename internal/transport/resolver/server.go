package resolver

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Server serves template documents from a directory over the resolver
// protocol. This is the dev-time peer for the engine's asset fetch path; the
// production resolver lives elsewhere and only shares the wire format.
type Server struct {
	dir string
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(dir string, logger *log.Logger) *Server {
	return &Server{
		dir: dir,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if !s.handshake(conn) {
			return
		}

		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := DecodeBase(msg)
			if err != nil || base.Type != TypeRequest {
				continue
			}
			var req RequestMsg
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}
			s.serveRequest(conn, req)
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) bool {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return false
	}
	base, err := DecodeBase(msg)
	if err != nil || base.Type != TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"),
			time.Now().Add(time.Second))
		return false
	}
	if base.ProtocolVersion != Version {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"),
			time.Now().Add(time.Second))
		return false
	}
	return s.writeJSON(conn, WelcomeMsg{Type: TypeWelcome, ProtocolVersion: Version})
}

func (s *Server) serveRequest(conn *websocket.Conn, req RequestMsg) {
	name := strings.TrimSpace(req.Name)
	if name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		s.writeError(conn, req.ReqID, CodeNotFound, "bad template name")
		return
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, name+".json"))
	if err != nil {
		s.writeError(conn, req.ReqID, CodeNotFound, name)
		return
	}
	if err := validateDocument(raw); err != nil {
		if s.log != nil {
			s.log.Printf("template %s rejected: %v", name, err)
		}
		s.writeError(conn, req.ReqID, CodeInvalid, err.Error())
		return
	}
	s.writeJSON(conn, TemplateMsg{
		Type:            TypeTemplate,
		ProtocolVersion: Version,
		ReqID:           req.ReqID,
		Name:            name,
		Doc:             json.RawMessage(raw),
	})
}

func (s *Server) writeError(conn *websocket.Conn, reqID, code, msg string) {
	s.writeJSON(conn, ErrorMsg{
		Type:            TypeError,
		ProtocolVersion: Version,
		ReqID:           reqID,
		Code:            code,
		Message:         msg,
	})
}

func (s *Server) writeJSON(conn *websocket.Conn, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		return false
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b) == nil
}
