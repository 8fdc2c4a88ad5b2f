package asr

import (
	"errors"
	"testing"
)

func TestSessionStateTransitions(t *testing.T) {
	s := NewSession("test")

	if s.State() != StateIdle {
		t.Errorf("Expected new session in idle, got %v", s.State())
	}
	if s.ID == "" {
		t.Error("Expected non-empty session ID")
	}

	s.SetState(StateConnecting)
	s.SetState(StateActive)
	if s.State() != StateActive {
		t.Errorf("Expected active, got %v", s.State())
	}

	if !s.Transition(StateActive, StateDraining) {
		t.Error("Expected active->draining transition to succeed")
	}
	if s.Transition(StateActive, StateFailed) {
		t.Error("Expected transition from wrong state to fail")
	}
	if s.State() != StateDraining {
		t.Errorf("Expected draining after rejected transition, got %v", s.State())
	}

	s.SetState(StateCompleted)
	if !s.State().Terminal() {
		t.Error("Expected completed to be terminal")
	}

	// Terminal states are sticky.
	s.SetState(StateActive)
	if s.State() != StateCompleted {
		t.Errorf("Expected terminal state to hold, got %v", s.State())
	}
}

func TestSessionStateStrings(t *testing.T) {
	tests := []struct {
		state SessionState
		want  string
	}{
		{StateIdle, "idle"},
		{StateConnecting, "connecting"},
		{StateActive, "active"},
		{StateDraining, "draining"},
		{StateCompleted, "completed"},
		{StateFailed, "failed"},
		{SessionState(99), "unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []SessionState{StateIdle, StateConnecting, StateActive, StateDraining} {
		if s.Terminal() {
			t.Errorf("Expected %v to be non-terminal", s)
		}
	}
	for _, s := range []SessionState{StateCompleted, StateFailed} {
		if !s.Terminal() {
			t.Errorf("Expected %v to be terminal", s)
		}
	}
}

func TestVendorErrorUnwrap(t *testing.T) {
	err := &VendorError{
		Provider: "aliyun",
		Code:     41010105,
		Message:  "audio format invalid",
		Err:      ErrVendorTaskFailed,
	}

	if !errors.Is(err, ErrVendorTaskFailed) {
		t.Error("Expected errors.Is to match the wrapped sentinel")
	}
	want := "aliyun: code 41010105: audio format invalid"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}

	noCode := &VendorError{Provider: "xunfei", Message: "closed"}
	if noCode.Error() != "xunfei: closed" {
		t.Errorf("Expected codeless format, got %q", noCode.Error())
	}
}
