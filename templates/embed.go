// Package templates provides embedded prompt templates.
package templates

import "embed"

// Prompts contains embedded prompt template files rendered with text/template.
//
//go:embed prompts/*.md
var Prompts embed.FS
