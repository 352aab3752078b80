package authz

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultPolicy_UserManagementRequiresAdmin(t *testing.T) {
	p := DefaultPolicy()

	for _, a := range []Action{ActionUsersCreate, ActionUsersUpdate, ActionUsersDelete} {
		if got := p.Threshold(a); got != 2 {
			t.Errorf("Threshold(%s) = %d, want 2", a, got)
		}
	}
	for _, a := range []Action{ActionComputersCreate, ActionPrintersDelete} {
		if got := p.Threshold(a); got != 1 {
			t.Errorf("Threshold(%s) = %d, want 1", a, got)
		}
	}
}

func TestPolicy_UnknownActionRequiresAdmin(t *testing.T) {
	if got := DefaultPolicy().Threshold("reports.export"); got != AdminLevel {
		t.Errorf("Threshold(unknown) = %d, want %d", got, AdminLevel)
	}
}

func TestLoadPolicy_EmptyPath_ReturnsDefaults(t *testing.T) {
	p, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Actions()) != len(DefaultPolicy().Actions()) {
		t.Errorf("actions = %v", p.Actions())
	}
}

func TestLoadPolicy_OverridesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := []byte("thresholds:\n  computers.delete: 3\n  printers.create: 0\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := p.Threshold(ActionComputersDelete); got != 3 {
		t.Errorf("Threshold(computers.delete) = %d, want 3", got)
	}
	if got := p.Threshold(ActionPrintersCreate); got != 0 {
		t.Errorf("Threshold(printers.create) = %d, want 0", got)
	}
	// 上書きしていない値は既定値のまま
	if got := p.Threshold(ActionUsersCreate); got != 2 {
		t.Errorf("Threshold(users.create) = %d, want 2", got)
	}
}

func TestLoadPolicy_NegativeThreshold_ReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("thresholds:\n  users.create: -1\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadPolicy(path); err == nil {
		t.Fatal("expected error for negative threshold")
	}
}

func TestLoadPolicy_MissingFile_ReturnsError(t *testing.T) {
	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadPolicy_InvalidYAML_ReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("thresholds: [1, 2"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadPolicy(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadPolicy_RejectsUnknownKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"misspelled action", "thresholds:\n  users.craete: 3\n", "users.craete"},
		{"unregistered action", "thresholds:\n  reports.export: 1\n  computers.delete: 2\n", "reports.export"},
		{"misspelled section", "threshold:\n  users.create: 3\n", "threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPolicy(writePolicy(t, tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadPolicy_EmptyFile_KeepsDefaults(t *testing.T) {
	p, err := LoadPolicy(writePolicy(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.Threshold(ActionUsersDelete); got != AdminLevel {
		t.Errorf("Threshold(users.delete) = %d, want %d", got, AdminLevel)
	}
}
