package web

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed assets
var assetsFS embed.FS

var indexTmpl = template.Must(template.ParseFS(assetsFS, "assets/index.html"))

// indexData feeds the page template. The limit is mirrored client-side
// for early rejection; the gateway remains authoritative.
type indexData struct {
	Theme       string
	MaxUploadMB int
	MaxBytes    int64
	Extensions  string
	Accept      string
}

func (s *Server) renderIndex(w http.ResponseWriter, theme string) {
	exts := make([]string, len(s.cfg.Extensions))
	for i, e := range s.cfg.Extensions {
		exts[i] = "." + e
	}

	data := indexData{
		Theme:       theme,
		MaxUploadMB: s.cfg.MaxUploadMB,
		MaxBytes:    s.cfg.MaxUploadBytes(),
		Extensions:  strings.Join(s.cfg.Extensions, ", "),
		Accept:      strings.Join(exts, ","),
	}

	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, data); err != nil {
		s.log.Error("rendering index failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) staticHandler() http.Handler {
	sub, err := fs.Sub(assetsFS, "assets/static")
	if err != nil {
		// The tree is embedded at compile time; a missing directory is
		// a build defect.
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
