package output

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &JSONWriter{}
	if err := w.Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	var parsed struct {
		SessionID string `json:"sessionId"`
		Mode      string `json:"mode"`
		Files     []struct {
			Path           string `json:"path"`
			Recommendation string `json:"recommendation"`
			Tier           string `json:"tier"`
			DuplicateOf    string `json:"duplicateOf"`
		} `json:"files"`
		Batch struct {
			Total    int `json:"total"`
			DeepDive int `json:"deepDive"`
		} `json:"batch"`
		Dedup *struct {
			DuplicatesSaved int `json:"duplicatesSaved"`
		} `json:"dedup"`
	}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.SessionID != "session-1" || parsed.Mode != "tracked" {
		t.Errorf("header = %q/%q", parsed.SessionID, parsed.Mode)
	}
	if len(parsed.Files) != 3 {
		t.Fatalf("files = %d, want 3", len(parsed.Files))
	}
	if got := parsed.Files[0]; got.Recommendation != "DEEP_DIVE" || got.Tier != "DEEP_DIVE" {
		t.Errorf("first file = %+v", got)
	}
	if got := parsed.Files[2]; got.Recommendation != "SKIP" || got.DuplicateOf != "src/util.rs" || got.Tier != "" {
		t.Errorf("duplicate file = %+v", got)
	}
	if parsed.Batch.Total != 3 || parsed.Batch.DeepDive != 1 {
		t.Errorf("batch = %+v", parsed.Batch)
	}
	if parsed.Dedup == nil || parsed.Dedup.DuplicatesSaved != 1 {
		t.Errorf("dedup = %+v", parsed.Dedup)
	}
}

func TestJSONWriter_OmitsOptionalSections(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONWriter{}).Write(&buf, emptyReport()); err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"dedup", "chunks", "dropped", "range"} {
		if _, ok := raw[key]; ok {
			t.Errorf("key %q should be omitted", key)
		}
	}
}
