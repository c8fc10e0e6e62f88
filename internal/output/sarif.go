package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/sieve/internal/analyzer"
	"github.com/dshills/sieve/internal/scan"
)

// SARIFWriter outputs triggered issues in SARIF v2.1.0 format.
type SARIFWriter struct {
	Version string
}

func (s *SARIFWriter) Write(w io.Writer, rep *scan.Report) error {
	data, err := json.MarshalIndent(buildSARIF(rep, s.Version), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	ShortDescription sarifMessage        `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig  `json:"defaultConfiguration"`
	Properties       sarifRuleProperties `json:"properties,omitzero"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifRuleProperties struct {
	Tags []string `json:"tags,omitempty"`
}

type sarifResult struct {
	RuleID     string                `json:"ruleId"`
	Level      string                `json:"level"`
	Message    sarifMessage          `json:"message"`
	Locations  []sarifLocation       `json:"locations,omitempty"`
	Properties sarifResultProperties `json:"properties"`
}

type sarifResultProperties struct {
	Recommendation    string  `json:"recommendation"`
	EstimatedLLMValue float64 `json:"estimatedLlmValue"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

// issueRules describes every issue category, in rule order.
var issueRules = []struct {
	category analyzer.IssueCategory
	text     string
	level    string
}{
	{analyzer.IssueSecrets, "Potential hardcoded secret", "error"},
	{analyzer.IssueSQLInjection, "Potential SQL injection", "error"},
	{analyzer.IssueUnsafeWithoutSafety, "Unsafe block without a safety comment", "error"},
	{analyzer.IssueUnwrapDensity, "High density of panicking unwraps", "warning"},
	{analyzer.IssueErrorRatio, "Poor error handling ratio", "warning"},
	{analyzer.IssueFFI, "Foreign function interface usage", "warning"},
	{analyzer.IssueComplexity, "High complexity", "warning"},
	{analyzer.IssueNesting, "Deep nesting", "warning"},
	{analyzer.IssueMarkers, "Many FIXME/HACK/XXX markers", "warning"},
	{analyzer.IssueTodoDensity, "High density of TODO items", "warning"},
	{analyzer.IssuePanicUsage, "Explicit panics", "note"},
	{analyzer.IssueTodoMarkers, "TODO markers", "note"},
	{analyzer.IssueMissingDocs, "Missing documentation", "note"},
}

func ruleID(c analyzer.IssueCategory) string { return "sieve/" + string(c) }

func buildSARIF(rep *scan.Report, version string) sarifLog {
	used := make(map[analyzer.IssueCategory]bool)
	results := []sarifResult{}

	for _, f := range rep.Files {
		if f.Skipped() {
			continue
		}
		messages := make(map[analyzer.IssueCategory]string, len(f.RedFlags))
		for _, rf := range f.RedFlags {
			messages[rf.Category] = rf.Message
		}
		for _, c := range f.Issues {
			used[c] = true
			text, ok := messages[c]
			if !ok {
				text = ruleText(c)
			}
			loc := sarifPhysicalLocation{ArtifactLocation: sarifArtifactLocation{URI: f.Path}}
			if c == analyzer.IssueSecrets && len(f.Signals.PotentialSecrets) > 0 {
				loc.Region = &sarifRegion{StartLine: f.Signals.PotentialSecrets[0].Line}
			}
			results = append(results, sarifResult{
				RuleID:    ruleID(c),
				Level:     ruleLevel(c),
				Message:   sarifMessage{Text: text},
				Locations: []sarifLocation{{PhysicalLocation: loc}},
				Properties: sarifResultProperties{
					Recommendation:    f.Recommendation.String(),
					EstimatedLLMValue: f.EstimatedLLMValue,
				},
			})
		}
	}

	// Rules in stable order, only those referenced.
	var rules []sarifRule
	for _, r := range issueRules {
		if !used[r.category] {
			continue
		}
		tag := "red-flag"
		if r.level == "note" {
			tag = "soft"
		}
		rules = append(rules, sarifRule{
			ID:               ruleID(r.category),
			Name:             string(r.category),
			ShortDescription: sarifMessage{Text: r.text},
			DefaultConfig:    sarifDefaultConfig{Level: r.level},
			Properties:       sarifRuleProperties{Tags: []string{"static-analysis", tag}},
		})
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "sieve",
						Version:        version,
						InformationURI: "https://github.com/dshills/sieve",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}
}

func ruleText(c analyzer.IssueCategory) string {
	for _, r := range issueRules {
		if r.category == c {
			return r.text
		}
	}
	return string(c)
}

func ruleLevel(c analyzer.IssueCategory) string {
	for _, r := range issueRules {
		if r.category == c {
			return r.level
		}
	}
	return "note"
}
