package asset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirLoader resolves templates from JSON documents on disk. Used by the
// headless runner when no remote resolver is configured, and by tests.
type DirLoader struct {
	Dir string
}

func (l DirLoader) LoadTemplate(ctx context.Context, name string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.ContainsAny(name, "/\\") || name == "" || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid template name %q", name)
	}
	raw, err := os.ReadFile(filepath.Join(l.Dir, name+".json"))
	if err != nil {
		return nil, err
	}
	doc, err := DecodeDocument(raw)
	if err != nil {
		return nil, err
	}
	if doc.Name != name {
		return nil, fmt.Errorf("template %s: document names itself %q", name, doc.Name)
	}
	return doc, nil
}
