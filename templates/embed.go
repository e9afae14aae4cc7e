// Package templates provides embedded prompt templates.
package templates

import "embed"

// Prompts contains the per-phase user prompt templates.
//
//go:embed prompts/*.md
var Prompts embed.FS

// SystemPrompts contains the role-framing system prompts for the main
// and knowledge models.
//
//go:embed system_prompts/*.md
var SystemPrompts embed.FS
