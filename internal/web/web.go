// Package web serves the embedded browser client.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// Handler returns a file server for the client pages. The exam page is a
// plain static app talking to the JSON API; it carries the exam-runner UI
// (countdown, focus-loss reporting, one-shot auto-submission).
func Handler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The subtree is compiled in; a failure here is a build defect.
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
