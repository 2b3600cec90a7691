// ABOUTME: Tests for root CLI command and global flags
// ABOUTME: Verifies command structure, subcommands, and flag handling

package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	if cmd.Use != "engage" {
		t.Errorf("Use = %q, want %q", cmd.Use, "engage")
	}

	if cmd.Short == "" {
		t.Error("Short description should not be empty")
	}

	if cmd.Long == "" {
		t.Error("Long description should not be empty")
	}

	// Verify the ASCII banner is in the long description (uses block characters)
	if !strings.Contains(cmd.Long, "███") {
		t.Error("Long description should contain ASCII banner")
	}
}

func TestRootCmd_GlobalFlags(t *testing.T) {
	cmd := NewRootCmd()

	tests := []struct {
		flagName  string
		shorthand string
		defValue  string
	}{
		{"verbose", "v", "false"},
		{"quiet", "q", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.flagName, func(t *testing.T) {
			flag := cmd.PersistentFlags().Lookup(tt.flagName)
			if flag == nil {
				t.Fatalf("--%s flag not found", tt.flagName)
			}

			if flag.Shorthand != tt.shorthand {
				t.Errorf("--%s shorthand = %q, want %q", tt.flagName, flag.Shorthand, tt.shorthand)
			}

			if flag.DefValue != tt.defValue {
				t.Errorf("--%s default = %q, want %q", tt.flagName, flag.DefValue, tt.defValue)
			}
		})
	}
}

func TestRootCmd_MutuallyExclusiveFlags(t *testing.T) {
	cmd := NewRootCmd()
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetErr(&output)
	cmd.SetArgs([]string{"--verbose", "--quiet", "version"})

	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for mutually exclusive flags, got nil")
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	expectedSubcommands := []string{
		"run",
		"publish",
		"redeem",
		"sweep",
		"breaker",
		"serve",
		"status",
		"version",
	}

	registered := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		registered[sub.Name()] = true
	}

	for _, name := range expectedSubcommands {
		if !registered[name] {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestBreakerCmd_Subcommands(t *testing.T) {
	cmd := NewBreakerCmd()

	registered := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		registered[sub.Name()] = true
	}
	for _, name := range []string{"status", "trip", "reset"} {
		if !registered[name] {
			t.Errorf("breaker subcommand %q not registered", name)
		}
	}
}

func TestRedeemCmd_RequiresToken(t *testing.T) {
	cmd := NewRedeemCmd()
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetErr(&output)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err == nil {
		t.Error("redeem without a token should fail argument validation")
	}
}
