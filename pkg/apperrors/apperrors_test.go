package apperrors

import (
	"errors"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	t.Run("maps every kind to a status", func(t *testing.T) {
		cases := []struct {
			kind Kind
			want int
		}{
			{KindValidation, http.StatusUnprocessableEntity},
			{KindUnauthorized, http.StatusUnauthorized},
			{KindForbidden, http.StatusForbidden},
			{KindNotFound, http.StatusNotFound},
			{KindBadRequest, http.StatusBadRequest},
			{KindInternal, http.StatusInternalServerError},
		}
		for _, c := range cases {
			got := New(c.kind, "X", "x").HTTPStatus()
			if got != c.want {
				t.Errorf("kind %d: expected %d, got %d", c.kind, c.want, got)
			}
		}
	})
}

func TestUnwrap(t *testing.T) {
	t.Run("keeps the cause for logging", func(t *testing.T) {
		cause := errors.New("db down")
		err := Internal(cause)
		if !errors.Is(err, cause) {
			t.Error("expected wrapped cause to be found")
		}
		if err.Code != CodeInternalError {
			t.Errorf("unexpected code: %s", err.Code)
		}
	})

	t.Run("message never contains the cause", func(t *testing.T) {
		err := Internal(errors.New("secret detail"))
		if err.Message != "internal server error" {
			t.Errorf("unexpected message: %s", err.Message)
		}
	})
}
