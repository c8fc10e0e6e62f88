package output

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestSARIFWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := (&SARIFWriter{Version: "1.0"}).Write(&buf, emptyReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	var sarif sarifLog
	if err := json.Unmarshal(buf.Bytes(), &sarif); err != nil {
		t.Fatalf("invalid SARIF JSON: %v", err)
	}
	if sarif.Version != "2.1.0" {
		t.Errorf("Version = %q, want %q", sarif.Version, "2.1.0")
	}
	if len(sarif.Runs) != 1 {
		t.Fatalf("Runs count = %d, want 1", len(sarif.Runs))
	}
	if sarif.Runs[0].Results == nil || len(sarif.Runs[0].Results) != 0 {
		t.Errorf("Results = %v, want empty array", sarif.Runs[0].Results)
	}
	if sarif.Runs[0].Tool.Driver.Name != "sieve" || sarif.Runs[0].Tool.Driver.Version != "1.0" {
		t.Errorf("driver = %+v", sarif.Runs[0].Tool.Driver)
	}
}

func TestSARIFWriter_Issues(t *testing.T) {
	var buf bytes.Buffer
	if err := (&SARIFWriter{Version: "1.0"}).Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	var sarif sarifLog
	if err := json.Unmarshal(buf.Bytes(), &sarif); err != nil {
		t.Fatalf("invalid SARIF JSON: %v", err)
	}
	run := sarif.Runs[0]
	if len(run.Results) != 3 {
		t.Fatalf("Results = %d, want 3", len(run.Results))
	}

	want := []struct {
		rule, level, text string
		line              int
	}{
		{"sieve/unwrap_density", "warning", "High unwrap density: 15 unwrap calls in 17 code lines", 0},
		{"sieve/hardcoded_secret", "error", "1 potential hardcoded secret(s) (1 high confidence)", 7},
		{"sieve/todo_markers", "note", "TODO markers", 0},
	}
	for i, w := range want {
		r := run.Results[i]
		if r.RuleID != w.rule || r.Level != w.level || r.Message.Text != w.text {
			t.Errorf("result[%d] = %s/%s/%q, want %s/%s/%q", i, r.RuleID, r.Level, r.Message.Text, w.rule, w.level, w.text)
		}
		if r.Locations[0].PhysicalLocation.ArtifactLocation.URI != "src/load.rs" {
			t.Errorf("result[%d] uri = %q", i, r.Locations[0].PhysicalLocation.ArtifactLocation.URI)
		}
		region := r.Locations[0].PhysicalLocation.Region
		switch {
		case w.line == 0 && region != nil:
			t.Errorf("result[%d] unexpected region %+v", i, region)
		case w.line > 0 && (region == nil || region.StartLine != w.line):
			t.Errorf("result[%d] region = %+v, want line %d", i, region, w.line)
		}
		if r.Properties.Recommendation != "DEEP_DIVE" {
			t.Errorf("result[%d] recommendation = %q", i, r.Properties.Recommendation)
		}
	}

	// Rules follow the fixed severity order, not first use.
	var ids []string
	for _, r := range run.Tool.Driver.Rules {
		ids = append(ids, r.ID)
	}
	wantIDs := []string{"sieve/hardcoded_secret", "sieve/unwrap_density", "sieve/todo_markers"}
	if len(ids) != len(wantIDs) {
		t.Fatalf("rules = %v, want %v", ids, wantIDs)
	}
	for i := range ids {
		if ids[i] != wantIDs[i] {
			t.Errorf("rule[%d] = %s, want %s", i, ids[i], wantIDs[i])
		}
	}
}
