package command

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDefaultRender(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "<b>x</b>", "<b>x</b>"},
		{"bytes", []byte("abc"), "abc"},
		{"int", 42, "42"},
		{"stringer", time.Duration(1500) * time.Millisecond, "1.5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DefaultRender(Inline, tt.value)
			if err != nil {
				t.Fatalf("DefaultRender() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DefaultRender() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandlerFunc(t *testing.T) {
	h := HandlerFunc(func(req Request) (any, error) {
		return string(req.Embedding) + ":" + req.Content, nil
	})

	got, err := h.Prepare(Request{Embedding: Block, Content: "x"})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if got != "block:x" {
		t.Errorf("Prepare() = %v, want %q", got, "block:x")
	}

	var nilFunc HandlerFunc
	if _, err := nilFunc.Prepare(Request{}); err == nil {
		t.Error("nil HandlerFunc Prepare() should return error")
	}
}

func TestFuncsDefaultsToDefaultRender(t *testing.T) {
	f := &Funcs{}
	got, err := f.Render(Inline, "text")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != "text" {
		t.Errorf("Render() = %q, want %q", got, "text")
	}

	v, err := f.Prepare(Request{})
	if err != nil || v != nil {
		t.Errorf("Prepare() = %v, %v; want nil, nil", v, err)
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"named", Errorf("_INVALID_%s_", "DT"), "_INVALID_DT_"},
		{"wrapped named", fmt.Errorf("ctx: %w", &Error{Message: "inner"}), "inner"},
		{"plain", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		if got := Message(tt.err); got != tt.want {
			t.Errorf("Message(%s) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
