package gcpclient

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fundvault/ragcore/internal/service"
)

func TestClassifyTerminalErrorNilPassesThrough(t *testing.T) {
	if err := classifyTerminalError(nil); err != nil {
		t.Errorf("classifyTerminalError(nil) = %v, want nil", err)
	}
}

func TestClassifyTerminalErrorRateLimited(t *testing.T) {
	err := classifyTerminalError(ErrRateLimited)
	if !errors.Is(err, service.ErrQuotaExceeded) {
		t.Errorf("classifyTerminalError(ErrRateLimited) = %v, want wrapping ErrQuotaExceeded", err)
	}
}

func TestClassifyTerminalErrorAuthFailures(t *testing.T) {
	cases := []string{
		"rpc error: code = PermissionDenied desc = caller lacks access",
		"401 Unauthorized",
		"UNAUTHENTICATED: missing bearer token",
	}
	for _, msg := range cases {
		err := classifyTerminalError(fmt.Errorf("%s", msg))
		if !errors.Is(err, service.ErrUnauthorized) {
			t.Errorf("classifyTerminalError(%q) = %v, want wrapping ErrUnauthorized", msg, err)
		}
	}
}

func TestClassifyTerminalErrorContentFiltered(t *testing.T) {
	cases := []string{
		"response blocked by safety filters",
		"content filtered due to policy violation",
	}
	for _, msg := range cases {
		err := classifyTerminalError(fmt.Errorf("%s", msg))
		if !errors.Is(err, service.ErrContentFiltered) {
			t.Errorf("classifyTerminalError(%q) = %v, want wrapping ErrContentFiltered", msg, err)
		}
	}
}

func TestClassifyTerminalErrorModelUnavailable(t *testing.T) {
	cases := []string{
		"rpc error: code = NotFound desc = model not found",
		"404 page not found",
	}
	for _, msg := range cases {
		err := classifyTerminalError(fmt.Errorf("%s", msg))
		if !errors.Is(err, service.ErrModelUnavailable) {
			t.Errorf("classifyTerminalError(%q) = %v, want wrapping ErrModelUnavailable", msg, err)
		}
	}
}

func TestClassifyTerminalErrorUnrecognizedPassesThrough(t *testing.T) {
	original := errors.New("some transient network hiccup")
	err := classifyTerminalError(original)
	if !errors.Is(err, original) {
		t.Errorf("classifyTerminalError(%v) = %v, want the original error unwrapped", original, err)
	}
}
