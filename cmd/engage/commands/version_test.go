// ABOUTME: Tests for the version command output
package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-02-01")
	defer SetVersion("dev", "none", "unknown")

	cmd := NewVersionCmd()
	var output bytes.Buffer
	cmd.SetOut(&output)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got := output.String()
	for _, want := range []string{"1.2.3", "abc123", "2026-02-01"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
