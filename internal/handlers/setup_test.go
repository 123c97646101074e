package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dynexia/portal/internal/auth"
	"github.com/dynexia/portal/internal/gate"
	"github.com/dynexia/portal/internal/models"
	"github.com/dynexia/portal/internal/policy"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Project{}, &models.TeamMember{},
		&models.Milestone{}, &models.Document{}, &models.Message{},
		&models.Invoice{}, &models.InvoiceItem{}, &models.Onboarding{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testGate() *gate.Gate[gate.Subject] { return policy.NewGate() }

func seedUser(t *testing.T, db *gorm.DB, email, role string) models.User {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	u := models.User{Name: email, Email: email, Password: string(hash), Role: role}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func seedProject(t *testing.T, db *gorm.DB, owner models.User, name string) models.Project {
	t.Helper()
	p := models.Project{Name: name, Description: "d", Status: "Planning", UserID: owner.ID}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed project %s: %v", name, err)
	}
	return p
}

// asUser injects the subject the way auth.Middleware would after resolving a
// session.
func asUser(req *http.Request, u models.User) *http.Request {
	s := gate.Subject{UserID: u.ID, Admin: u.IsAdmin()}
	return req.WithContext(auth.WithSubject(req.Context(), s))
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target string, body io.Reader, u models.User) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	req = asUser(req, u)
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Count      *int            `json:"count"`
	Pagination *struct {
		Next *struct{ Page, Limit int } `json:"next"`
		Prev *struct{ Page, Limit int } `json:"prev"`
	} `json:"pagination"`
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, w.Body.String())
	}
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	env := decodeEnvelope(t, w)
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v (body %s)", err, w.Body.String())
	}
}
