package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/sieve/internal/gitctx"
)

const (
	hookMarkerStart = "# >>> sieve pre-commit hook >>>"
	hookMarkerEnd   = "# <<< sieve pre-commit hook <<<"
)

var (
	hookFailOn string
	hookFormat string
	hookTodos  bool
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage git pre-commit hook",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install sieve as a git pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := getHookPath(cmd.Context())
		if err != nil {
			fail(err)
			return nil
		}
		if err := installHook(hookPath, generateHookScript(hookFailOn, hookFormat, hookTodos)); err != nil {
			fail(err)
			return nil
		}
		fmt.Fprintf(os.Stdout, "Installed sieve pre-commit hook at %s\n", hookPath)
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove sieve pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := getHookPath(cmd.Context())
		if err != nil {
			fail(err)
			return nil
		}
		msg, err := uninstallHook(hookPath)
		if err != nil {
			fail(err)
			return nil
		}
		fmt.Fprintln(os.Stdout, msg)
		return nil
	},
}

func getHookPath(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dir, err := gitctx.HooksDir(ctx, ".")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pre-commit"), nil
}

// installHook writes section into the hook at hookPath, replacing an
// earlier sieve section and preserving anything else in the file.
func installHook(hookPath, section string) error {
	existing, err := os.ReadFile(hookPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading hook file: %w", err)
	}

	var content string
	if len(existing) == 0 {
		content = "#!/bin/sh\n" + section
	} else {
		content = replaceSieveSection(string(existing), section)
	}

	if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
		return fmt.Errorf("creating hooks directory: %w", err)
	}
	if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
		return fmt.Errorf("writing hook file: %w", err)
	}
	return nil
}

// uninstallHook removes the sieve section, deleting the hook when nothing
// but a shebang remains. It returns a message for the user.
func uninstallHook(hookPath string) (string, error) {
	existing, err := os.ReadFile(hookPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "No pre-commit hook found.", nil
		}
		return "", fmt.Errorf("reading hook file: %w", err)
	}

	content := removeSieveSection(string(existing))
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || trimmed == "#!/bin/sh" || trimmed == "#!/bin/bash" {
		if err := os.Remove(hookPath); err != nil {
			return "", fmt.Errorf("removing hook file: %w", err)
		}
		return fmt.Sprintf("Removed sieve pre-commit hook at %s", hookPath), nil
	}

	if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
		return "", fmt.Errorf("writing hook file: %w", err)
	}
	return fmt.Sprintf("Removed sieve section from %s", hookPath), nil
}

func generateHookScript(failOn, format string, todos bool) string {
	var b strings.Builder
	b.WriteString(hookMarkerStart + "\n")
	fmt.Fprintf(&b, "sieve scan --staged --fail-on %s --format %s", failOn, format)
	if todos {
		b.WriteString(" --todos")
	}
	b.WriteString("\n")
	b.WriteString("SIEVE_EXIT=$?\n")
	b.WriteString("if [ $SIEVE_EXIT -eq 1 ]; then\n")
	b.WriteString("  echo \"sieve: staged files need review at or above the threshold, commit blocked\"\n")
	b.WriteString("  exit 1\n")
	b.WriteString("elif [ $SIEVE_EXIT -ge 2 ]; then\n")
	b.WriteString("  echo \"sieve: warning: scan encountered an error (exit $SIEVE_EXIT), allowing commit\"\n")
	b.WriteString("fi\n")
	b.WriteString(hookMarkerEnd + "\n")
	return b.String()
}

func replaceSieveSection(existing, section string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		if !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + section
	}

	before := existing[:startIdx]
	after := strings.TrimPrefix(existing[endIdx+len(hookMarkerEnd):], "\n")
	return before + section + after
}

func removeSieveSection(existing string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		return existing
	}

	before := existing[:startIdx]
	after := strings.TrimPrefix(existing[endIdx+len(hookMarkerEnd):], "\n")
	return before + after
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookInstallCmd.Flags().StringVar(&hookFailOn, "fail-on", "deep_dive", "Block the commit at this tier (none, standard, deep_dive)")
	hookInstallCmd.Flags().StringVar(&hookFormat, "format", "text", "Output format (text, json, markdown, sarif)")
	hookInstallCmd.Flags().BoolVar(&hookTodos, "todos", false, "Let TODO comments raise a file's tier")
}
