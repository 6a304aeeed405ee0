package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpcontext "github.com/dtroode/flashcards-server/internal/api/http/context"
	"github.com/dtroode/flashcards-server/internal/testutil"
)

type MockTokenParser struct {
	mock.Mock
}

func (m *MockTokenParser) ParseAccessToken(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}

func TestAuthenticate_Handle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		header     string
		username   string
		parseErr   error
		wantStatus int
		wantCalled bool
	}{
		{name: "missing authorization header", wantStatus: http.StatusUnauthorized},
		{name: "not a bearer token", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "empty bearer token", header: "Bearer  ", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer bad", parseErr: errors.New("expired"), wantStatus: http.StatusUnauthorized},
		{name: "empty subject", header: "Bearer token", wantStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer token", username: "alice", wantStatus: http.StatusOK, wantCalled: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			parser := &MockTokenParser{}
			parser.On("ParseAccessToken", mock.Anything).Return(tt.username, tt.parseErr)
			ctxManager := httpcontext.NewManager()
			m := NewAuthenticate(parser, ctxManager, testutil.MakeNoopLogger())

			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/api/domains", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			called := false
			err := m.Handle(func(c echo.Context) error {
				called = true
				username, ok := ctxManager.GetUsernameFromContext(c.Request().Context())
				assert.True(t, ok)
				assert.Equal(t, tt.username, username)
				return c.NoContent(http.StatusOK)
			})(c)

			assert.Equal(t, tt.wantCalled, called)
			if !tt.wantCalled {
				var httpErr *echo.HTTPError
				require.ErrorAs(t, err, &httpErr)
				assert.Equal(t, tt.wantStatus, httpErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
