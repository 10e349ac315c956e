package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"textdeck/agent"
)

func TestServiceError_ErrorFormat(t *testing.T) {
	tests := []struct {
		name      string
		service   string
		operation string
		err       error
		want      string
	}{
		{
			name:      "basic error",
			service:   "Generator",
			operation: "Render",
			err:       fmt.Errorf("disk full"),
			want:      "[Generator.Render] disk full",
		},
		{
			name:      "empty service name",
			service:   "",
			operation: "Derive",
			err:       fmt.Errorf("timeout"),
			want:      "[.Derive] timeout",
		},
		{
			name:      "empty operation name",
			service:   "Server",
			operation: "",
			err:       fmt.Errorf("closed"),
			want:      "[Server.] closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := &ServiceError{Service: tt.service, Operation: tt.operation, Err: tt.err}
			if got := se.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapError_Nil(t *testing.T) {
	if err := WrapError("Generator", "Derive", nil); err != nil {
		t.Errorf("WrapError(nil) = %v, want nil", err)
	}
}

func TestWrapError_KeepsSentinel(t *testing.T) {
	err := WrapError("Generator", "Derive", agent.ErrMissingCredential)

	if !errors.Is(err, agent.ErrMissingCredential) {
		t.Fatalf("errors.Is should see through ServiceError, got %v", err)
	}
	var se *ServiceError
	if !errors.As(err, &se) || se.Operation != "Derive" {
		t.Fatalf("errors.As should find the ServiceError, got %v", err)
	}
	if !isClientError(err) {
		t.Error("missing credential should be classified as a client error")
	}
}

func TestPublicMessage(t *testing.T) {
	cause := errors.New("unsupported LLM provider: llama")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain error", cause, "unsupported LLM provider: llama"},
		{"wrapped once", WrapError("Generator", "Derive", cause), "unsupported LLM provider: llama"},
		{"nested", WrapError("Server", "Generate", WrapError("Generator", "Derive", cause)), "unsupported LLM provider: llama"},
		{"behind fmt wrap", fmt.Errorf("request abc: %w", WrapError("Generator", "Render", cause)), "unsupported LLM provider: llama"},
		{"no cause", &ServiceError{Service: "Generator", Operation: "Render"}, "Generator.Render failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublicMessage(tt.err); got != tt.want {
				t.Errorf("PublicMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServiceErrorFormatProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		service := rapid.String().Draw(t, "service")
		operation := rapid.String().Draw(t, "operation")
		msg := rapid.String().Draw(t, "msg")

		original := errors.New(msg)
		wrapped := WrapError(service, operation, original)

		errStr := wrapped.Error()
		if !strings.HasPrefix(errStr, "["+service+"."+operation+"] ") {
			t.Fatalf("Error() %q lacks the [%s.%s] prefix", errStr, service, operation)
		}
		if !strings.HasSuffix(errStr, msg) {
			t.Fatalf("Error() %q should end with the cause %q", errStr, msg)
		}
		if errors.Unwrap(wrapped) != original {
			t.Fatal("Unwrap should return the original error")
		}
		if got := PublicMessage(wrapped); got != msg {
			t.Fatalf("PublicMessage = %q, want %q", got, msg)
		}
	})
}
