package validator

import (
	"errors"
	"testing"
)

type sample struct {
	Name   string `json:"name" validate:"required,notblank"`
	Email  string `json:"email,omitempty" validate:"omitempty,email"`
	Status string `json:"status" validate:"omitempty,oneof=New Won"`
}

func TestNotBlank(t *testing.T) {
	val := New()

	if err := val.Struct(sample{Name: "Ann"}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	if err := val.Struct(sample{Name: "   "}); err == nil {
		t.Fatal("expected whitespace-only name to fail")
	}
	if err := val.Var("\t", "notblank"); err == nil {
		t.Fatal("expected tab to fail notblank")
	}
}

func TestFieldsUsesJSONNames(t *testing.T) {
	err := New().Struct(sample{Name: " ", Email: "nope", Status: "Lost"})

	got := Fields(err)
	want := map[string]string{
		"name":   "is required",
		"email":  "must be a valid e-mail address",
		"status": "must be one of: New Won",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d fields, got %v", len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("field %s: expected %q, got %q", k, v, got[k])
		}
	}
}

func TestFieldsWithPlainError(t *testing.T) {
	if Fields(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
	if got := Fields(errors.New("boom")); got["_"] != "boom" {
		t.Fatalf("unexpected %v", got)
	}
}
