package httpserver_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/useradmin/internal/domain/errs"
	"github.com/lllypuk/useradmin/internal/infrastructure/httpserver"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) httpserver.Response {
	t.Helper()
	var resp httpserver.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRespondOK(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, httpserver.RespondOK(c, map[string]int{"total": 3}))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"total": float64(3)}, resp.Data)
}

type fieldsErr struct{}

func (fieldsErr) Error() string { return "validation failed: first_name" }

func (fieldsErr) Is(target error) bool { return target == errs.ErrValidationFailed }

func (fieldsErr) FieldErrors() map[string]string {
	return map[string]string{"first_name": "Введите имя"}
}

type teapotErr struct{}

func (teapotErr) Error() string       { return "teapot" }
func (teapotErr) HTTPStatus() int     { return http.StatusTeapot }
func (teapotErr) HTTPCode() string    { return "TEAPOT" }
func (teapotErr) HTTPMessage() string { return "short and stout" }

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantFields map[string]string
	}{
		{name: "not found", err: fmt.Errorf("view %q: %w", "x", errs.ErrNotFound), wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "invalid input", err: errs.ErrInvalidInput, wantStatus: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
		{name: "invalid state", err: errs.ErrInvalidState, wantStatus: http.StatusConflict, wantCode: "INVALID_STATE"},
		{name: "fetch failed", err: fmt.Errorf("%w: timeout", errs.ErrFetchFailed), wantStatus: http.StatusBadGateway, wantCode: "FETCH_FAILED"},
		{name: "delete failed", err: errs.ErrDeleteFailed, wantStatus: http.StatusBadGateway, wantCode: "DELETE_FAILED"},
		{name: "validation without fields", err: errs.ErrValidationFailed, wantStatus: http.StatusUnprocessableEntity, wantCode: "VALIDATION_FAILED"},
		{
			name: "validation with fields", err: fieldsErr{},
			wantStatus: http.StatusUnprocessableEntity, wantCode: "VALIDATION_FAILED",
			wantFields: map[string]string{"first_name": "Введите имя"},
		},
		{name: "custom http error", err: fmt.Errorf("wrapped: %w", teapotErr{}), wantStatus: http.StatusTeapot, wantCode: "TEAPOT"},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext()

			require.NoError(t, httpserver.RespondError(c, tt.err))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus, httpserver.StatusOf(tt.err))
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
			assert.Equal(t, tt.wantFields, resp.Error.Fields)
		})
	}
}

func TestRespondErrorWithCode(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, httpserver.RespondErrorWithCode(c, http.StatusServiceUnavailable, "HUB_DOWN", "hub stopped"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "HUB_DOWN", resp.Error.Code)
	assert.Equal(t, "hub stopped", resp.Error.Message)
}
