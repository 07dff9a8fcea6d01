package handlers

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// FrontendServer serves the static web frontend from dir. The request path is
// resolved inside dir; "/" and directories serve their index.html.
//
//	r.Get("/*", FrontendServer(cfg.FrontendDirectory))
func FrontendServer(dir string) http.HandlerFunc {
	baseDir := filepath.Clean(dir)
	log.Printf("Serving frontend from directory: %s", baseDir)

	return func(w http.ResponseWriter, r *http.Request) {
		relativePath := strings.TrimPrefix(r.URL.Path, "/")
		if strings.Contains(relativePath, "..") {
			http.Error(w, "Invalid asset path", http.StatusBadRequest)
			return
		}

		cleanedPath := filepath.Clean(filepath.Join(baseDir, filepath.FromSlash(relativePath)))
		if cleanedPath != baseDir && !strings.HasPrefix(cleanedPath, baseDir+string(filepath.Separator)) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			log.Printf("SECURITY: Attempted frontend access outside directory: Request='%s', Resolved='%s'", r.URL.Path, cleanedPath)
			return
		}

		info, err := os.Stat(cleanedPath)
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		} else if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Printf("Error stating frontend file %s: %v", cleanedPath, err)
			return
		}
		if info.IsDir() {
			cleanedPath = filepath.Join(cleanedPath, "index.html")
			if _, err := os.Stat(cleanedPath); err != nil {
				http.NotFound(w, r)
				return
			}
		}

		// ServeFile redirects requests ending in /index.html, so hand it the content directly
		f, err := os.Open(cleanedPath)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Printf("Error opening frontend file %s: %v", cleanedPath, err)
			return
		}
		defer f.Close()
		stat, err := f.Stat()
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		http.ServeContent(w, r, stat.Name(), stat.ModTime(), f)
	}
}
