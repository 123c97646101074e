package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dynexia/portal/internal/gate"
)

func TestSessionRoundTrip(t *testing.T) {
	w := httptest.NewRecorder()
	CreateSession(w, 42)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	uid, ok := ParseSession(req)
	if !ok || uid != 42 {
		t.Fatalf("expected uid 42, got %d ok=%v", uid, ok)
	}
}

func TestParseSession_TamperedSignature(t *testing.T) {
	w := httptest.NewRecorder()
	CreateSession(w, 42)
	c := w.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: c.Name, Value: "43." + c.Value[len("42."):]})
	if _, ok := ParseSession(req); ok {
		t.Fatal("tampered session should not parse")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := IssueToken(7)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	uid, ok := ParseToken(tok)
	if !ok || uid != 7 {
		t.Fatalf("expected uid 7, got %d ok=%v", uid, ok)
	}
	if _, ok := ParseToken(tok + "x"); ok {
		t.Fatal("corrupted token should not parse")
	}
}

func TestMiddleware_ResolvesSubject(t *testing.T) {
	SetSubjectResolver(func(_ context.Context, uid uint) (gate.Subject, bool) {
		if uid == 42 {
			return gate.Subject{UserID: 42, Admin: true}, true
		}
		return gate.Subject{}, false
	})
	t.Cleanup(func() { SetSubjectResolver(nil) })

	var got gate.Subject
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = SubjectFromContext(r.Context())
	})

	w := httptest.NewRecorder()
	CreateSession(w, 42)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	Middleware(next).ServeHTTP(httptest.NewRecorder(), req)
	if got.UserID != 42 || !got.Admin {
		t.Fatalf("expected resolved admin subject, got %+v", got)
	}
}

func TestRequireAuth_NoSubject(t *testing.T) {
	h := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCachedResolver(t *testing.T) {
	calls := 0
	inner := func(_ context.Context, uid uint) (gate.Subject, bool) {
		calls++
		return gate.Subject{UserID: uid}, true
	}
	r := NewCachedResolver(inner, time.Minute)

	for i := 0; i < 3; i++ {
		if _, ok := r.Resolve(context.Background(), 5); !ok {
			t.Fatal("expected resolve to succeed")
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 inner call, got %d", calls)
	}

	r.Invalidate(5)
	r.Resolve(context.Background(), 5)
	if calls != 2 {
		t.Fatalf("expected refetch after invalidate, got %d calls", calls)
	}
}
