package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/dynexia/portal/internal/models"
)

func TestRegisterLoginFlow(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db)

	body := `{"name":"Alice","email":"Alice@Test.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Register(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201 got %d (%s)", w.Code, w.Body.String())
	}
	var creds struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}
	decodeData(t, w, &creds)
	if creds.Token == "" {
		t.Fatal("register returned no token")
	}
	if creds.User.Role != models.RoleClient {
		t.Fatalf("registration must produce a client, got %q", creds.User.Role)
	}
	// email stored lowercased
	var stored models.User
	if err := db.Where("email = ?", "alice@test.com").First(&stored).Error; err != nil {
		t.Fatalf("stored user not found: %v", err)
	}

	// Duplicate email conflicts.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	w = httptest.NewRecorder()
	h.Register(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409 got %d", w.Code)
	}

	// Login with the right password succeeds, sets a session cookie.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"alice@test.com","password":"password123"}`))
	w = httptest.NewRecorder()
	h.Login(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200 got %d (%s)", w.Code, w.Body.String())
	}
	if len(w.Result().Cookies()) == 0 {
		t.Fatal("login set no session cookie")
	}

	// Wrong password and unknown email produce the same response.
	for _, body := range []string{
		`{"email":"alice@test.com","password":"wrong"}`,
		`{"email":"nobody@test.com","password":"password123"}`,
	} {
		req = httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		w = httptest.NewRecorder()
		h.Login(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("bad login: expected 401 got %d", w.Code)
		}
		if env := decodeEnvelope(t, w); env.Error != "invalid_credentials" {
			t.Fatalf("expected uniform invalid_credentials, got %q", env.Error)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db)

	for name, body := range map[string]string{
		"short password": `{"name":"A","email":"a@test","password":"short"}`,
		"missing email":  `{"name":"A","password":"password123"}`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
			w := httptest.NewRecorder()
			h.Register(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", w.Code)
			}
		})
	}
}

func TestChangePassword(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db)
	invalidated := 0
	h.Invalidate = func(uint) { invalidated++ }
	alice := seedUser(t, db, "alice@test", models.RoleClient)

	w := doJSON(t, h.ChangePassword, http.MethodPut, "/api/auth/password",
		strings.NewReader(`{"current":"wrong","new":"newpassword1"}`), alice)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("wrong current: expected 400 got %d", w.Code)
	}

	w = doJSON(t, h.ChangePassword, http.MethodPut, "/api/auth/password",
		strings.NewReader(`{"current":"password123","new":"newpassword1"}`), alice)
	if w.Code != http.StatusOK {
		t.Fatalf("change: expected 200 got %d (%s)", w.Code, w.Body.String())
	}
	if invalidated != 1 {
		t.Fatalf("expected one cache invalidation, got %d", invalidated)
	}
	var stored models.User
	db.First(&stored, alice.ID)
	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("newpassword1")) != nil {
		t.Fatal("new password not stored")
	}
}
