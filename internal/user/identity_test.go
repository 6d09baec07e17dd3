package user

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func identityRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(EnsureIdentity())
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, FromContext(c))
	})
	return r
}

func issuedCookie(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == CookieName {
			return cookie.Value
		}
	}
	return ""
}

func TestEnsureIdentity_IssuesCookieWhenMissing(t *testing.T) {
	r := identityRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	issued := issuedCookie(t, rec)
	if !IsValidID(issued) {
		t.Fatalf("Expected a valid issued id, got %q", issued)
	}
	if rec.Body.String() != issued {
		t.Errorf("Expected handler to see the issued id, got %q", rec.Body.String())
	}
}

func TestEnsureIdentity_KeepsValidCookie(t *testing.T) {
	r := identityRouter()
	existing := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: existing})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if issued := issuedCookie(t, rec); issued != "" {
		t.Errorf("Expected no replacement cookie, got %q", issued)
	}
	if rec.Body.String() != existing {
		t.Errorf("Expected the existing id to be kept, got %q", rec.Body.String())
	}
}

func TestEnsureIdentity_ReplacesMalformedCookie(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "not a uuid", value: "bob"},
		{name: "truncated", value: "123e4567-e89b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := identityRouter()

			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.value})
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			issued := issuedCookie(t, rec)
			if !IsValidID(issued) {
				t.Fatalf("Expected a valid replacement id, got %q", issued)
			}
			if issued == tt.value {
				t.Error("Malformed cookie must not be kept")
			}
		})
	}
}

func TestIsValidID(t *testing.T) {
	if !IsValidID(uuid.NewString()) {
		t.Error("Expected a fresh uuid to be valid")
	}
	if IsValidID("") || IsValidID("not-a-uuid") {
		t.Error("Expected malformed values to be rejected")
	}
}
