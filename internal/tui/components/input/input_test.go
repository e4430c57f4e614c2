package input

import (
	"testing"

	tea "charm.land/bubbletea/v2"
)

func TestSubmitRecordsHistory(t *testing.T) {
	in := New()
	in.Focus()

	in.SetValue("  hello  ")
	if got := in.Submit(); got != "hello" {
		t.Fatalf("Submit() = %q, want %q", got, "hello")
	}
	if in.Value() != "" {
		t.Error("Submit() should clear the input")
	}

	in.SetValue("/remind 5m tea")
	in.Submit()

	in.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	if got := in.Value(); got != "/remind 5m tea" {
		t.Errorf("after up: %q", got)
	}
	in.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	if got := in.Value(); got != "hello" {
		t.Errorf("after second up: %q", got)
	}
	in.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	in.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if got := in.Value(); got != "" {
		t.Errorf("walking past the newest entry should clear, got %q", got)
	}
}

func TestBlurredInputIgnoresKeys(t *testing.T) {
	in := New()
	in.Update(tea.KeyPressMsg{Code: 'a', Text: "a"})

	if in.Value() != "" {
		t.Errorf("blurred input accepted text: %q", in.Value())
	}
	if in.Cursor() != nil {
		t.Error("blurred input should not expose a cursor")
	}
	if got := in.Submit(); got != "" {
		t.Errorf("Submit() on empty input = %q", got)
	}
}
