// internal/llm/factory/factory.go
package factory

import (
	"fmt"

	"github.com/newthinker/edgeval/internal/config"
	"github.com/newthinker/edgeval/internal/core"
	"github.com/newthinker/edgeval/internal/llm"
	"github.com/newthinker/edgeval/internal/llm/claude"
	"github.com/newthinker/edgeval/internal/llm/openai"
)

// New creates an LLM provider based on configuration.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model, cfg.Claude.BaseURL)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	case "":
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no LLM provider configured"))
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown LLM provider: %s", cfg.Provider))
	}
}
