package services

import (
	"toolbridge/internal/models"
	"toolbridge/internal/tools"
)

const (
	toolPreamble     = "You can call the following MCP tools if helpful:\n"
	uiResourceNotice = "\nWhen a tool returns a UIResource, return it as JSON under key \"uiResource\"."
)

// PromptAssembler turns a user prompt into the two-turn conversation sent to
// the model. The tool list comes from the same catalog the adapters are
// built from.
type PromptAssembler struct {
	catalog *tools.Catalog
	system  string
}

// NewPromptAssembler renders the system turn once; the catalog never changes
func NewPromptAssembler(catalog *tools.Catalog) *PromptAssembler {
	return &PromptAssembler{
		catalog: catalog,
		system:  toolPreamble + catalog.Describe() + uiResourceNotice,
	}
}

// SystemPrompt returns the rendered system turn content
func (p *PromptAssembler) SystemPrompt() string {
	return p.system
}

// Assemble returns exactly one system turn followed by the verbatim prompt
func (p *PromptAssembler) Assemble(prompt string) []models.ConversationTurn {
	return []models.ConversationTurn{
		{Role: models.RoleSystem, Content: p.system},
		{Role: models.RoleHuman, Content: prompt},
	}
}
