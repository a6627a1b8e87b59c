package handler

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-cards/internal/domain"
	"bank-cards/internal/errors"
)

type stubParser struct {
	principal domain.Principal
	err       error
}

func (s stubParser) Parse(string) (domain.Principal, error) {
	return s.principal, s.err
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *Error {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestWriteErrorHidesForeignErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, stderrors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "internal_error", e.Code)
	assert.NotContains(t, e.Message, "pq")
}

func TestWriteErrorUsesAppErrorStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.ErrInsufficientFunds)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "insufficient_funds", decodeError(t, rec).Code)
}

func TestAuthenticator(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	alice := domain.Principal{UserID: 3, Username: "alice", Roles: domain.NewRoleSet(domain.RoleUser)}

	var seen domain.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		parser stubParser
		status int
	}{
		{"valid", "Bearer good", stubParser{principal: alice}, http.StatusNoContent},
		{"lowercase scheme", "bearer good", stubParser{principal: alice}, http.StatusNoContent},
		{"missing header", "", stubParser{principal: alice}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", stubParser{principal: alice}, http.StatusUnauthorized},
		{"empty token", "Bearer  ", stubParser{principal: alice}, http.StatusUnauthorized},
		{"rejected token", "Bearer bad", stubParser{err: errors.ErrUnauthorized}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = domain.Principal{}
			req := httptest.NewRequest("GET", "/api/cards", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			Authenticator(tt.parser, logger)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				assert.Equal(t, alice, seen)
			} else {
				assert.False(t, seen.Authenticated())
			}
		})
	}
}

func TestPageFromQuery(t *testing.T) {
	page, err := pageFromQuery(httptest.NewRequest("GET", "/api/cards?offset=40&limit=20", nil))
	require.NoError(t, err)
	assert.Equal(t, domain.Page{Offset: 40, Limit: 20}, page)

	page, err = pageFromQuery(httptest.NewRequest("GET", "/api/cards", nil))
	require.NoError(t, err)
	assert.Equal(t, domain.Page{}, page)

	_, err = pageFromQuery(httptest.NewRequest("GET", "/api/cards?limit=ten", nil))
	assert.True(t, stderrors.Is(err, errors.ErrInvalidPage))
}

func TestPathID(t *testing.T) {
	req := mux.SetURLVars(httptest.NewRequest("GET", "/api/cards/7", nil), map[string]string{"id": "7"})
	id, err := pathID(req, errors.InvalidCardID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	for _, raw := range []string{"0", "-3", "abc"} {
		req := mux.SetURLVars(httptest.NewRequest("GET", "/", nil), map[string]string{"id": raw})
		_, err := pathID(req, errors.InvalidCardID)
		assert.True(t, stderrors.Is(err, errors.ErrInvalidCardID), raw)
	}
}
