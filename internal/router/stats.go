package router

import "fmt"

// Stats aggregates routing decisions across a scan.
type Stats struct {
	MinimalCount  int `json:"minimalCount"`
	StandardCount int `json:"standardCount"`
	DeepDiveCount int `json:"deepDiveCount"`

	MinimalTokens  int `json:"minimalTokens"`
	StandardTokens int `json:"standardTokens"`
	DeepDiveTokens int `json:"deepDiveTokens"`

	// BaselineTokens is what every file would cost at the Standard tier.
	BaselineTokens int `json:"baselineTokens"`
}

// Record adds one routed prompt and its Standard-tier baseline.
func (s *Stats) Record(p PromptTier, baseline int) {
	switch p.Tier {
	case TierMinimal:
		s.MinimalCount++
		s.MinimalTokens += p.EstimatedInputTokens
	case TierStandard:
		s.StandardCount++
		s.StandardTokens += p.EstimatedInputTokens
	case TierDeepDive:
		s.DeepDiveCount++
		s.DeepDiveTokens += p.EstimatedInputTokens
	}
	s.BaselineTokens += baseline
}

// Files is the number of routed files.
func (s Stats) Files() int { return s.MinimalCount + s.StandardCount + s.DeepDiveCount }

// ActualTokens is the estimated input across all tiers.
func (s Stats) ActualTokens() int { return s.MinimalTokens + s.StandardTokens + s.DeepDiveTokens }

// Savings is baseline minus actual; negative when DeepDive overhead
// outweighs the Minimal savings.
func (s Stats) Savings() int { return s.BaselineTokens - s.ActualTokens() }

// SavingsPercent is Savings relative to the baseline.
func (s Stats) SavingsPercent() float64 {
	if s.BaselineTokens == 0 {
		return 0
	}
	return float64(s.Savings()) / float64(s.BaselineTokens) * 100
}

// Summary renders the stats as one line.
func (s Stats) Summary() string {
	return fmt.Sprintf("Prompt routing: %d minimal, %d standard, %d deep-dive | Est. tokens: %d baseline → %d actual | Savings: %.1f%%",
		s.MinimalCount, s.StandardCount, s.DeepDiveCount, s.BaselineTokens, s.ActualTokens(), s.SavingsPercent())
}
