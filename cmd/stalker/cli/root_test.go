package cli

import (
	"testing"

	"github.com/XDRAGON2002/stalker/internal/trace"
)

func TestBuildConfigLaunchMode(t *testing.T) {
	cfg, err := buildConfig(0, []string{"ls", "-al", "/etc/hosts"})
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.Path != "ls" {
		t.Errorf("Path = %q, want ls", cfg.Path)
	}
	if len(cfg.Args) != 2 || cfg.Args[0] != "-al" {
		t.Errorf("Args = %v, want [-al /etc/hosts]", cfg.Args)
	}
	if cfg.PID != 0 {
		t.Errorf("PID = %d, want 0", cfg.PID)
	}
}

func TestBuildConfigAttachMode(t *testing.T) {
	cfg, err := buildConfig(123, nil)
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.PID != 123 {
		t.Errorf("PID = %d, want 123", cfg.PID)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q, want empty", cfg.Path)
	}
}

func TestBuildConfigModesAreExclusive(t *testing.T) {
	if _, err := buildConfig(123, []string{"ls"}); err == nil {
		t.Error("expected error for -p combined with a command")
	}
}

func TestBuildConfigNothingToTrace(t *testing.T) {
	if _, err := buildConfig(0, nil); err == nil {
		t.Error("expected error for empty invocation")
	}
}

func TestBuildConfigNegativePid(t *testing.T) {
	if _, err := buildConfig(-4, nil); err == nil {
		t.Error("expected error for negative pid")
	}
}

// The stalker process exits with the tracee's own status: the exit code as-is
// for a normal exit, 128+N for a death to signal N.
func TestExitStatusCode(t *testing.T) {
	cases := []struct {
		name   string
		status trace.ExitStatus
		want   int
	}{
		{"clean exit", trace.ExitStatus{Code: 0}, 0},
		{"nonzero exit", trace.ExitStatus{Code: 7}, 7},
		{"killed", trace.ExitStatus{Signal: 9, Signaled: true}, 137},
		{"terminated", trace.ExitStatus{Signal: 15, Signaled: true}, 143},
	}
	for _, tc := range cases {
		if got := exitStatusCode(tc.status); got != tc.want {
			t.Errorf("%s: exitStatusCode = %d, want %d", tc.name, got, tc.want)
		}
	}
}
