package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateHookScript(t *testing.T) {
	script := generateHookScript("deep_dive", "text", false)

	if !strings.Contains(script, hookMarkerStart) {
		t.Error("Script missing start marker")
	}
	if !strings.Contains(script, hookMarkerEnd) {
		t.Error("Script missing end marker")
	}
	if !strings.Contains(script, "sieve scan --staged --fail-on deep_dive --format text\n") {
		t.Error("Script missing sieve command with correct flags")
	}
	if !strings.Contains(script, "SIEVE_EXIT=$?") {
		t.Error("Script missing exit code capture")
	}
	if !strings.Contains(script, "exit 1") {
		t.Error("Script missing exit 1 for findings")
	}
	if !strings.Contains(script, "allowing commit") {
		t.Error("Script missing warning for errors")
	}
}

func TestGenerateHookScript_CustomFlags(t *testing.T) {
	script := generateHookScript("standard", "json", true)

	if !strings.Contains(script, "--fail-on standard") {
		t.Error("Script doesn't use custom fail-on")
	}
	if !strings.Contains(script, "--format json") {
		t.Error("Script doesn't use custom format")
	}
	if !strings.Contains(script, "--todos") {
		t.Error("Script doesn't enable todos")
	}
}

func TestReplaceSieveSection_NoExisting(t *testing.T) {
	existing := "#!/bin/sh\nsome-other-hook\n"
	section := generateHookScript("deep_dive", "text", false)

	result := replaceSieveSection(existing, section)

	if !strings.HasPrefix(result, "#!/bin/sh\nsome-other-hook\n") {
		t.Error("Existing content should be preserved")
	}
	if !strings.Contains(result, hookMarkerStart) {
		t.Error("New section should be appended")
	}
}

func TestReplaceSieveSection_ExistingSection(t *testing.T) {
	oldSection := generateHookScript("standard", "text", false)
	existing := "#!/bin/sh\nbefore\n" + oldSection + "after\n"
	newSection := generateHookScript("deep_dive", "json", false)

	result := replaceSieveSection(existing, newSection)

	if !strings.Contains(result, "before") {
		t.Error("Content before sieve section should be preserved")
	}
	if !strings.Contains(result, "after") {
		t.Error("Content after sieve section should be preserved")
	}
	if !strings.Contains(result, "--fail-on deep_dive") {
		t.Error("New section should have updated flags")
	}
	if strings.Contains(result, "--fail-on standard") {
		t.Error("Old section should be replaced")
	}
	if strings.Count(result, hookMarkerStart) != 1 {
		t.Error("Exactly one sieve section expected")
	}
}

func TestRemoveSieveSection(t *testing.T) {
	section := generateHookScript("deep_dive", "text", false)
	existing := "#!/bin/sh\nbefore\n" + section + "after\n"

	result := removeSieveSection(existing)

	if strings.Contains(result, hookMarkerStart) {
		t.Error("Sieve section should be removed")
	}
	if result != "#!/bin/sh\nbefore\nafter\n" {
		t.Errorf("result = %q", result)
	}
}

func TestRemoveSieveSection_NoSection(t *testing.T) {
	existing := "#!/bin/sh\nsome-hook\n"
	if result := removeSieveSection(existing); result != existing {
		t.Error("Content without sieve section should be unchanged")
	}
}

func TestReplaceSieveSection_NoTrailingNewline(t *testing.T) {
	existing := "#!/bin/sh\nsome-hook"
	section := generateHookScript("deep_dive", "text", false)

	result := replaceSieveSection(existing, section)

	if !strings.HasPrefix(result, "#!/bin/sh\nsome-hook\n"+hookMarkerStart) {
		t.Errorf("Section should be appended on a new line, got %q", result)
	}
}

func TestInstallUninstallHook(t *testing.T) {
	hookPath := filepath.Join(t.TempDir(), "hooks", "pre-commit")
	section := generateHookScript("deep_dive", "text", false)

	if err := installHook(hookPath, section); err != nil {
		t.Fatalf("installHook error: %v", err)
	}
	data, err := os.ReadFile(hookPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "#!/bin/sh\n"+hookMarkerStart) {
		t.Errorf("new hook = %q", data)
	}
	info, err := os.Stat(hookPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Error("hook should be executable")
	}

	msg, err := uninstallHook(hookPath)
	if err != nil {
		t.Fatalf("uninstallHook error: %v", err)
	}
	if !strings.Contains(msg, "Removed sieve pre-commit hook") {
		t.Errorf("message = %q", msg)
	}
	if _, err := os.Stat(hookPath); !os.IsNotExist(err) {
		t.Error("hook with only a shebang left should be deleted")
	}

	msg, err = uninstallHook(hookPath)
	if err != nil || msg != "No pre-commit hook found." {
		t.Errorf("second uninstall = %q, %v", msg, err)
	}
}

func TestUninstallHook_KeepsOtherHooks(t *testing.T) {
	hookPath := filepath.Join(t.TempDir(), "pre-commit")
	if err := os.WriteFile(hookPath, []byte("#!/bin/sh\nmake lint\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := installHook(hookPath, generateHookScript("standard", "text", false)); err != nil {
		t.Fatal(err)
	}
	msg, err := uninstallHook(hookPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg, "Removed sieve section") {
		t.Errorf("message = %q", msg)
	}
	data, err := os.ReadFile(hookPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "#!/bin/sh\nmake lint\n" {
		t.Errorf("remaining hook = %q", data)
	}
}
