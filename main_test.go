package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phobologic/abuild/internal/cli"
)

func TestRunVersion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--version"}, nil, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "abuild version ") {
		t.Errorf("unexpected version output: %q", stdout.String())
	}
}

func TestRunInitWorkspace(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "ws")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-w", dir, "init", "workspace", "demo"}, nil, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "abuild.yaml")); err != nil {
		t.Errorf("workspace file: %v", err)
	}
	if !strings.Contains(stdout.String(), "initialized workspace demo") {
		t.Errorf("unexpected output: %q", stdout.String())
	}
}

func TestRunNotAWorkspace(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-w", t.TempDir(), "build"}, nil, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected an error outside a workspace")
	}
	if code := exitCode(err, &stderr); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.HasPrefix(stderr.String(), "error: ") || !strings.Contains(stderr.String(), "not an abuild workspace") {
		t.Errorf("unexpected stderr: %q", stderr.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"deploy"}, nil, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		want      int
		wantPrint bool
	}{
		{"success", nil, 0, false},
		{"program exit", &cli.ExitError{Code: 3}, 3, false},
		{"wrapped program exit", fmt.Errorf("run: %w", &cli.ExitError{Code: 7}), 7, false},
		{"failure", errors.New("boom"), 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var stderr bytes.Buffer
			if got := exitCode(tt.err, &stderr); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
			if printed := stderr.Len() > 0; printed != tt.wantPrint {
				t.Errorf("printed = %v, stderr %q", printed, stderr.String())
			}
		})
	}
}
