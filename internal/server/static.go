package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SPAHandler serves a built single-page front end, answering unknown paths with index.html so client-side
// routes like /connected work on reload.
type SPAHandler struct {
	root  string
	files http.Handler
}

// NewSPAHandler serves the directory root.
func NewSPAHandler(root string) *SPAHandler {
	return &SPAHandler{root: root, files: http.FileServer(http.Dir(root))}
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if strings.HasPrefix(name, "/api/") {
		http.NotFound(w, r)
		return
	}

	info, err := os.Stat(filepath.Join(h.root, filepath.FromSlash(name)))
	if err != nil || (info.IsDir() && name != "/") {
		http.ServeFile(w, r, filepath.Join(h.root, "index.html"))
		return
	}
	h.files.ServeHTTP(w, r)
}
