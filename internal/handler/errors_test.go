package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"devmatch/internal/errs"
	"devmatch/internal/service/auth"
)

func statusFor(t *testing.T, err error) (int, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, err)
	return w.Code, w.Body.String()
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.Validation(errs.Field("title", "too short")), http.StatusBadRequest},
		{errs.ErrDuplicateApplication, http.StatusBadRequest},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{errs.ErrForbidden, http.StatusForbidden},
		{errs.ErrNotFound, http.StatusNotFound},
		{errs.ErrConflict, http.StatusConflict},
		{errs.ErrUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: db timeout", errs.ErrUnavailable), http.StatusServiceUnavailable},
		{errors.New("something else"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		code, _ := statusFor(t, tc.err)
		assert.Equal(t, tc.want, code, "error %v", tc.err)
	}
}

func TestRespondErrorValidationBody(t *testing.T) {
	_, body := statusFor(t, errs.Validation(
		errs.Field("title", "must be between 5 and 200 characters"),
		errs.Field("skills", "at least one skill is required"),
	))

	assert.Contains(t, body, `"fields"`)
	assert.Contains(t, body, `"title"`)
	assert.Contains(t, body, `"skills"`)
}

func TestRespondErrorHidesInternals(t *testing.T) {
	_, body := statusFor(t, errors.New("pq: connection refused on host 10.0.0.3"))
	assert.NotContains(t, body, "10.0.0.3")
}
