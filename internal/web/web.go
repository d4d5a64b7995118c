package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed view/index.html
var indexHTML []byte

//go:embed static
var staticFiles embed.FS

// Index returns the homepage markup.
func Index() []byte {
	return indexHTML
}

// Static serves the embedded assets. Mount it under /static/ with the prefix
// stripped.
func Static() http.Handler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
