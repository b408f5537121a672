package stream

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a requested artifact path escapes the
// artifacts directory.
var ErrOutsideRoot = errors.New("path escapes artifacts directory")

// Server serves files confined to one artifacts root.
type Server struct {
	root   string
	logger *slog.Logger
}

func NewServer(root string, logger *slog.Logger) *Server {
	return &Server{root: root, logger: logger}
}

// Resolve maps a request-supplied relative path onto the artifacts
// root, rejecting anything that climbs out of it.
func (s *Server) Resolve(rel string) (string, error) {
	cleaned := filepath.Clean("/" + rel)
	full := filepath.Join(s.root, cleaned)
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return full, nil
}

// ServeArtifact serves the artifact at the given path relative to the
// root, honouring Range requests.
func (s *Server) ServeArtifact(w http.ResponseWriter, r *http.Request, rel string) error {
	full, err := s.Resolve(rel)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return nil
	}
	return s.ServeFile(w, r, full)
}

// ServeFile streams one file with byte-range support. Unknown range
// syntax degrades to a full-content response; an unsatisfiable range
// gets a 416 with the total size.
func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("cannot open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("cannot stat file: %w", err)
	}
	if stat.IsDir() {
		http.Error(w, "not found", http.StatusNotFound)
		return nil
	}

	size := stat.Size()
	contentType := mime.TypeByExtension(filepath.Ext(filePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	reqRange, err := ParseRange(r.Header.Get("Range"), size)
	if errors.Is(err, ErrUnsatisfiable) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}
	if err != nil && !errors.Is(err, ErrInvalidRange) {
		return err
	}

	if reqRange == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, file)
		return nil
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", reqRange.ContentLength()))
	w.Header().Set("Content-Range", reqRange.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := file.Seek(reqRange.Start, io.SeekStart); err != nil {
		return fmt.Errorf("cannot seek: %w", err)
	}
	io.CopyN(w, file, reqRange.ContentLength())
	return nil
}
