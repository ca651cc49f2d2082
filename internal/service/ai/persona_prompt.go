package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/z-shop/backend/internal/model/persona"
)

// BuildSystemPrompt returns the fixed system instruction for a persona.
// Personas without an explicit instruction get one assembled from their
// descriptive fields.
func BuildSystemPrompt(p *persona.Persona) string {
	if p == nil {
		return ""
	}
	if strings.TrimSpace(p.SystemPrompt) != "" {
		return p.SystemPrompt
	}
	return buildBasicSystemPrompt(p)
}

func buildBasicSystemPrompt(p *persona.Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, %s.", p.Name, strings.ToLower(p.Title))
	if p.Tone != "" {
		fmt.Fprintf(&b, " Keep your replies %s.", p.Tone)
	}
	if len(p.Expertise) > 0 {
		fmt.Fprintf(&b, " You can help with %s.", strings.Join(p.Expertise, ", "))
	}
	if p.Description != "" {
		b.WriteString(" ")
		b.WriteString(p.Description)
	}
	return b.String()
}
