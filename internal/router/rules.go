package router

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Rules is a team rules pack that extends Standard and DeepDive prompts.
type Rules struct {
	Focus    []string        `json:"focus,omitempty" toml:"focus"`
	Required []RequiredCheck `json:"required,omitempty" toml:"required"`
}

// RequiredCheck is a policy check the reviewer must always evaluate.
type RequiredCheck struct {
	ID   string `json:"id" toml:"id"`
	Text string `json:"text" toml:"text"`
}

// LoadRules reads a rules pack; ".toml" files are TOML, anything else
// JSON. It returns nil Rules and nil error for an empty path.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	var rules Rules
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &rules); err != nil {
			return nil, fmt.Errorf("parsing rules file: %w", err)
		}
	} else if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	for i, req := range rules.Required {
		if req.ID == "" || req.Text == "" {
			return nil, fmt.Errorf("parsing rules file: required check %d needs both id and text", i+1)
		}
	}
	return &rules, nil
}

// PromptSection renders the rules as prompt instructions. A nil pack
// renders nothing.
func (r *Rules) PromptSection() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	if len(r.Focus) > 0 {
		fmt.Fprintf(&b, "\nTeam focus areas: %s. Rank findings in these areas first.\n", strings.Join(r.Focus, ", "))
	}
	if len(r.Required) > 0 {
		b.WriteString("\nRequired checks (always evaluate these):\n")
		for _, req := range r.Required {
			fmt.Fprintf(&b, "- [%s] %s\n", req.ID, req.Text)
		}
	}
	return b.String()
}
