package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusByKind(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:      http.StatusNotFound,
		KindValidation:    http.StatusBadRequest,
		KindConflict:      http.StatusConflict,
		KindUnprocessable: http.StatusUnprocessableEntity,
		KindInternal:      http.StatusInternalServerError,
		Kind(99):          http.StatusBadRequest,
	}
	for kind, want := range cases {
		if got := New(kind, "x").HTTPStatus(); got != want {
			t.Fatalf("%s: expected %d, got %d", kind, want, got)
		}
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	cause := errors.New("pending tasks")
	err := fmt.Errorf("move contact: %w", Wrap(KindUnprocessable, "blocked", cause))

	if !Is(err, KindUnprocessable) {
		t.Fatalf("expected unprocessable kind, got %s", KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected the cause to stay reachable")
	}
	if KindOf(cause) != KindUnknown {
		t.Fatal("plain errors have no kind")
	}
}
