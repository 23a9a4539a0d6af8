// Package docs serves the embedded API reference page.
package docs

import (
	"embed"
	"net/http"
)

//go:embed index.html
var assets embed.FS

// Handler returns an http.Handler that serves the API reference.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := assets.ReadFile("index.html")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data)
	})
}
