package handler

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

	"github.com/iliyamo/restaurant-pos/internal/repository"
	"github.com/iliyamo/restaurant-pos/internal/tenant"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{repository.Invalid("total", "mismatch"), http.StatusBadRequest, "validation_error"},
		{fmt.Errorf("login: %w", repository.ErrBadCredentials), http.StatusUnauthorized, "bad_credentials"},
		{repository.ErrTenantInactive, http.StatusForbidden, "tenant_inactive"},
		{repository.ErrTenantNotFound, http.StatusNotFound, "tenant_not_found"},
		{repository.ErrNotFound, http.StatusNotFound, "not_found"},
		{repository.ErrConflict, http.StatusConflict, "conflict"},
		{repository.ErrDuplicate, http.StatusConflict, "duplicate"},
		{tenant.ErrPoolClosed, http.StatusServiceUnavailable, "unavailable"},
		{errors.New("disk I/O error"), http.StatusInternalServerError, "server_error"},
	}
	for _, tc := range cases {
		status, code, _ := classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func render(err error) (*httptest.ResponseRecorder, errorBody) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/sales/1", nil), rec)
	HTTPErrorHandler(err, c)
	var body errorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestHTTPErrorHandler(t *testing.T) {
	rec, body := render(repository.ErrTenantInactive)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "tenant_inactive", body.Error)

	rec, body = render(errors.New("near \"SELEC\": syntax error"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, body.Message, "SELEC")

	rec, body = render(echo.NewHTTPError(http.StatusRequestEntityTooLarge, "body too large"))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "payload_too_large", body.Error)
	assert.Equal(t, "body too large", body.Message)

	rec, body = render(echo.ErrMethodNotAllowed)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "method_not_allowed", body.Error)
}
