package main

import (
	"errors"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestExitErrHandler_NilError(t *testing.T) {
	// Should not panic or exit on nil error
	exitErrHandler(nil, nil)
}

func TestExitCoder_PreservesRunCodes(t *testing.T) {
	tests := []struct {
		name string
		code int
	}{
		{"completed", 0},
		{"completed_with_errors", 1},
		{"auth_expired", 2},
		{"startup_failure", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.Exit("", tt.code)

			var exitCoder cli.ExitCoder
			if !errors.As(err, &exitCoder) {
				t.Fatal("cli.Exit should return ExitCoder")
			}
			if exitCoder.ExitCode() != tt.code {
				t.Errorf("ExitCode() = %d, want %d", exitCoder.ExitCode(), tt.code)
			}
		})
	}
}

func TestExitCoder_WrappedErrorStillMatches(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), cli.Exit("inner", 2))

	var exitCoder cli.ExitCoder
	if !errors.As(wrapped, &exitCoder) {
		t.Fatal("wrapped error should still match cli.ExitCoder")
	}
	if exitCoder.ExitCode() != 2 {
		t.Errorf("exit code = %d, want 2", exitCoder.ExitCode())
	}
}

func TestRegularError_IsNotExitCoder(t *testing.T) {
	var exitCoder cli.ExitCoder
	if errors.As(errors.New("regular error"), &exitCoder) {
		t.Fatal("regular error should not be cli.ExitCoder")
	}
}

func TestExitMessage_EmptyIsSuppressed(t *testing.T) {
	err := cli.Exit("", 0)
	msg := err.Error()

	if msg != "" && msg != "exit status 0" {
		t.Errorf("expected empty or 'exit status 0', got %q", msg)
	}
}
