// Package web embeds the admin page templates and its static assets.
package web

import "embed"

// TemplatesFS holds the templates directory, parsed by the HTML renderer.
//
//go:embed templates
var TemplatesFS embed.FS

// StaticFS holds the static directory, served under /static.
//
//go:embed static
var StaticFS embed.FS
