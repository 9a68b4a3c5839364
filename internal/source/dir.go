package source

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DirRetriever serves files below a content root. Word and PDF documents are
// converted to plain text.
type DirRetriever struct {
	root string
	log  *slog.Logger
}

func NewDirRetriever(root string, log *slog.Logger) *DirRetriever {
	return &DirRetriever{root: root, log: log.With("component", "dir_retriever")}
}

// Root returns the content root directory.
func (d *DirRetriever) Root() string { return d.root }

func (d *DirRetriever) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &RetrievalError{Path: name, Reason: err.Error(), Err: err}
	}
	full, ok := d.resolve(name)
	if !ok {
		d.log.Warn("rejected path outside content root", "path", name)
		return nil, notFound(name)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(name)
		}
		return nil, &RetrievalError{Path: name, Status: http.StatusInternalServerError, Reason: http.StatusText(http.StatusInternalServerError), Err: err}
	}

	switch strings.ToLower(filepath.Ext(full)) {
	case ".docx":
		text, err := extractDOCX(data)
		if err != nil {
			return nil, &RetrievalError{Path: name, Status: http.StatusUnprocessableEntity, Reason: err.Error(), Err: err}
		}
		return []byte(text), nil
	case ".pdf":
		text, err := extractPDF(data)
		if err != nil {
			return nil, &RetrievalError{Path: name, Status: http.StatusUnprocessableEntity, Reason: err.Error(), Err: err}
		}
		return []byte(text), nil
	}
	return data, nil
}

// resolve maps a slash-separated content path to a file under root.
func (d *DirRetriever) resolve(name string) (string, bool) {
	if name == "" || strings.Contains(name, "\\") || strings.HasPrefix(name, "/") {
		return "", false
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return filepath.Join(d.root, filepath.FromSlash(clean)), true
}
