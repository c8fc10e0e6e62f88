package router

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dshills/sieve/internal/analyzer"
	"github.com/dshills/sieve/internal/lang"
	"github.com/dshills/sieve/internal/patterns"
	"github.com/dshills/sieve/internal/signals"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid router config")

// Tier is a prompt template level. Order matters: Minimal < Standard < DeepDive.
type Tier int

const (
	TierMinimal Tier = iota
	TierStandard
	TierDeepDive
)

func (t Tier) String() string {
	switch t {
	case TierMinimal:
		return "MINIMAL"
	case TierStandard:
		return "STANDARD"
	case TierDeepDive:
		return "DEEP_DIVE"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// TierFor maps a recommendation to its prompt tier. Skip maps to Minimal
// so a skipped file routed by mistake still gets the cheapest prompt.
func TierFor(rec analyzer.Recommendation) Tier {
	switch rec {
	case analyzer.Skip, analyzer.Minimal:
		return TierMinimal
	case analyzer.Standard:
		return TierStandard
	case analyzer.DeepDive:
		return TierDeepDive
	}
	return TierStandard
}

// PromptTier is a fully rendered prompt ready for an LLM client.
type PromptTier struct {
	Tier                 Tier    `json:"tier"`
	SystemPrompt         string  `json:"systemPrompt"`
	UserPrompt           string  `json:"userPrompt"`
	MaxTokens            int     `json:"maxTokens"`
	Temperature          float64 `json:"temperature"`
	EstimatedInputTokens int     `json:"estimatedInputTokens"`
	// StaticContext is empty when static context was not included.
	StaticContext string `json:"staticContext,omitempty"`
}

// Config controls routing and rendering.
type Config struct {
	// Enabled false routes every file to Standard.
	Enabled bool `json:"enabled"`

	MinimalMaxTokens  int `json:"minimalMaxTokens"`
	StandardMaxTokens int `json:"standardMaxTokens"`
	DeepDiveMaxTokens int `json:"deepDiveMaxTokens"`

	MinimalTemperature  float64 `json:"minimalTemperature"`
	StandardTemperature float64 `json:"standardTemperature"`
	DeepDiveTemperature float64 `json:"deepDiveTemperature"`

	// IncludeStaticContext applies to Minimal and Standard; DeepDive
	// always carries it.
	IncludeStaticContext    bool `json:"includeStaticContext"`
	StripCommentsForMinimal bool `json:"stripCommentsForMinimal"`

	// Redaction is configured in the privacy section, not here.
	RedactSecrets bool `json:"-"`
	// RedactPaths withholds whole files whose path matches a glob.
	RedactPaths []string `json:"-"`

	// Rules extends Standard and DeepDive prompts; nil for none.
	Rules *Rules `json:"-"`
}

// DefaultConfig returns the built-in routing settings.
func DefaultConfig() Config {
	return Config{
		Enabled:                 true,
		MinimalMaxTokens:        1024,
		StandardMaxTokens:       4096,
		DeepDiveMaxTokens:       8192,
		MinimalTemperature:      0.1,
		StandardTemperature:     0.3,
		DeepDiveTemperature:     0.4,
		IncludeStaticContext:    true,
		StripCommentsForMinimal: true,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	for _, mt := range []struct {
		name string
		v    int
	}{
		{"minimalMaxTokens", c.MinimalMaxTokens},
		{"standardMaxTokens", c.StandardMaxTokens},
		{"deepDiveMaxTokens", c.DeepDiveMaxTokens},
	} {
		if mt.v <= 0 {
			return fmt.Errorf("%w: %s must be > 0, got %d", ErrInvalidConfig, mt.name, mt.v)
		}
	}
	for _, tt := range []struct {
		name string
		v    float64
	}{
		{"minimalTemperature", c.MinimalTemperature},
		{"standardTemperature", c.StandardTemperature},
		{"deepDiveTemperature", c.DeepDiveTemperature},
	} {
		if tt.v < 0 || tt.v > 2 {
			return fmt.Errorf("%w: %s must be in [0,2], got %g", ErrInvalidConfig, tt.name, tt.v)
		}
	}
	return nil
}

// Router renders prompts. It is safe for concurrent use.
type Router struct {
	cfg   Config
	th    analyzer.Thresholds
	table *patterns.Table
}

// New validates cfg and th. The thresholds must be the ones the analyzer
// used so red flags match its DeepDive decision.
func New(cfg Config, th analyzer.Thresholds) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &Router{cfg: cfg, th: th, table: patterns.Default()}, nil
}

// Config returns the router settings.
func (r *Router) Config() Config { return r.cfg }

// Route renders the prompt for a file.
func (r *Router) Route(path, content string, res analyzer.Result) PromptTier {
	if !r.cfg.Enabled {
		return r.standard(path, content, res)
	}
	switch TierFor(res.Recommendation) {
	case TierMinimal:
		return r.minimal(path, content, res)
	case TierDeepDive:
		return r.deepDive(path, content, res)
	default:
		return r.standard(path, content, res)
	}
}

// BaselineTokens is the Standard-tier estimate for a file: the cost had
// every file been sent with the same prompt.
func (r *Router) BaselineTokens(path, content string, res analyzer.Result) int {
	return r.standard(path, content, res).EstimatedInputTokens
}

func (r *Router) minimal(path, content string, res analyzer.Result) PromptTier {
	var ctx string
	if r.cfg.IncludeStaticContext {
		ctx = StaticContext(res.Signals)
	}
	body := content
	if r.cfg.StripCommentsForMinimal {
		body, _ = analyzer.StripForPrompt(content, lang.Detect(path))
	}
	return r.render(TierMinimal, minimalSystemPrompt, minimalUserPrompt(path, r.body(path, body), ctx), ctx)
}

func (r *Router) standard(path, content string, res analyzer.Result) PromptTier {
	var ctx string
	if r.cfg.IncludeStaticContext {
		ctx = StaticContext(res.Signals)
	}
	return r.render(TierStandard, standardSystemPrompt, standardUserPrompt(path, r.body(path, content), ctx, r.cfg.Rules), ctx)
}

func (r *Router) deepDive(path, content string, res analyzer.Result) PromptTier {
	ctx := deepDiveContext(res)
	found := analyzer.RedFlags(res.Signals, r.th)
	if slices.Contains(res.Issues, analyzer.IssueTodoDensity) {
		found = append(found, todoFlag(res.Signals))
	}
	flags := RedFlagList(found)
	return r.render(TierDeepDive, deepDiveSystemPrompt, deepDiveUserPrompt(path, r.body(path, content), ctx, flags, r.cfg.Rules), ctx)
}

// todoFlag explains a tier raised by tracked TODOs, which the static
// red flags never cover.
func todoFlag(s signals.QualitySignals) analyzer.RedFlag {
	return analyzer.RedFlag{
		Category: analyzer.IssueTodoDensity,
		Message: fmt.Sprintf("Tracked TODOs: %d high-priority of %d (%d medium, %d low)",
			s.HighPriorityTodos, s.TodoSourceTotal, s.MediumPriorityTodos, s.LowPriorityTodos),
	}
}

func (r *Router) render(t Tier, system, user, ctx string) PromptTier {
	p := PromptTier{
		Tier:                 t,
		SystemPrompt:         system,
		UserPrompt:           user,
		EstimatedInputTokens: EstimateTokens(system, user),
		StaticContext:        ctx,
	}
	switch t {
	case TierMinimal:
		p.MaxTokens, p.Temperature = r.cfg.MinimalMaxTokens, r.cfg.MinimalTemperature
	case TierStandard:
		p.MaxTokens, p.Temperature = r.cfg.StandardMaxTokens, r.cfg.StandardTemperature
	case TierDeepDive:
		p.MaxTokens, p.Temperature = r.cfg.DeepDiveMaxTokens, r.cfg.DeepDiveTemperature
	}
	return p
}

// body applies the path policy and inline secret redaction.
func (r *Router) body(path, content string) string {
	if patterns.ShouldRedactPath(path, r.cfg.RedactPaths) {
		return r.table.Content(content, path, r.cfg.RedactPaths)
	}
	if r.cfg.RedactSecrets {
		return r.table.Redact(content)
	}
	return content
}
