package server

import (
	contextpkg "context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuthorizeRequestLogsExpiredTokenAtInfoLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/files", http.NoBody)
	request.Header.Set("Authorization", "Bearer expired-token")
	ctx.Request = request

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	handler := &httpHandler{
		tokens: stubTokenManager{
			validateErr: errors.Join(auth.ErrInvalidToken, jwt.ErrTokenExpired),
		},
		logger: logger,
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	if recorder.Body.String() != `{"message":"Invalid token"}` {
		t.Fatalf("unexpected response body: %s", recorder.Body.String())
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.InfoLevel {
		t.Fatalf("expected info level for expired token, got %s", entry.Level)
	}
	if entry.Message != "token validation failed" {
		t.Fatalf("unexpected log message: %q", entry.Message)
	}
	hasExpired := false
	for _, field := range entry.Context {
		if field.Type == zapcore.ErrorType && errors.Is(field.Interface.(error), jwt.ErrTokenExpired) {
			hasExpired = true
			break
		}
	}
	if !hasExpired {
		t.Fatalf("expected expired token error context, got %v", entry.Context)
	}
}

func TestAuthorizeRequestLogsUnexpectedTokenErrorAtWarnLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/files", http.NoBody)
	request.Header.Set("Authorization", "Bearer invalid-token")
	ctx.Request = request

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	handler := &httpHandler{
		tokens: stubTokenManager{
			validateErr: errors.New("signature mismatch"),
		},
		logger: logger,
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for unexpected error, got %s", entry.Level)
	}
	if entry.Message != "token validation failed" {
		t.Fatalf("unexpected log message: %q", entry.Message)
	}
}

func TestAuthorizeRequestRejectsMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/files", http.NoBody)

	handler := &httpHandler{tokens: stubTokenManager{}, logger: zap.NewNop()}
	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d", recorder.Code)
	}
	if recorder.Body.String() != `{"message":"No token"}` {
		t.Fatalf("unexpected response body: %s", recorder.Body.String())
	}
}

func TestAuthorizeRequestRejectsWrongScheme(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/files", http.NoBody)
	request.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	ctx.Request = request

	handler := &httpHandler{tokens: stubTokenManager{}, logger: zap.NewNop()}
	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d", recorder.Code)
	}
	if recorder.Body.String() != `{"message":"Invalid token"}` {
		t.Fatalf("unexpected response body: %s", recorder.Body.String())
	}
}

func TestAuthorizeRequestStoresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/files", http.NoBody)
	request.Header.Set("Authorization", "Bearer good-token")
	ctx.Request = request

	handler := &httpHandler{
		tokens: stubTokenManager{claims: auth.Claims{UserID: "user-1", Email: "a@x.io"}},
		logger: zap.NewNop(),
	}
	handler.authorizeRequest(ctx)

	if ctx.IsAborted() {
		t.Fatalf("request should not be aborted")
	}
	if ctx.GetString(userIDContextKey) != "user-1" {
		t.Fatalf("unexpected user id %q", ctx.GetString(userIDContextKey))
	}
	if ctx.GetString(userEmailContextKey) != "a@x.io" {
		t.Fatalf("unexpected email %q", ctx.GetString(userEmailContextKey))
	}
}

func TestAuthorizeStreamAcceptsQueryToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/logs/stream?access_token=query-token", http.NoBody)

	tokens := &recordingTokenManager{claims: auth.Claims{UserID: "user-9"}}
	handler := &httpHandler{tokens: tokens, logger: zap.NewNop()}
	handler.authorizeStream(ctx)

	if ctx.IsAborted() {
		t.Fatalf("request should not be aborted, body %s", recorder.Body.String())
	}
	if tokens.lastToken != "query-token" {
		t.Fatalf("expected query token to be validated, got %q", tokens.lastToken)
	}
	if ctx.GetString(userIDContextKey) != "user-9" {
		t.Fatalf("unexpected user id %q", ctx.GetString(userIDContextKey))
	}
}

type stubTokenManager struct {
	claims      auth.Claims
	validateErr error
}

func (s stubTokenManager) IssueToken(contextpkg.Context, auth.Identity) (string, int64, error) {
	return "", 0, errors.New("not implemented")
}

func (s stubTokenManager) ValidateToken(string) (auth.Claims, error) {
	if s.validateErr != nil {
		return auth.Claims{}, s.validateErr
	}
	return s.claims, nil
}

type recordingTokenManager struct {
	claims    auth.Claims
	lastToken string
}

func (r *recordingTokenManager) IssueToken(contextpkg.Context, auth.Identity) (string, int64, error) {
	return "", 0, errors.New("not implemented")
}

func (r *recordingTokenManager) ValidateToken(token string) (auth.Claims, error) {
	r.lastToken = token
	return r.claims, nil
}
