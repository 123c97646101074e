package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dynexia/portal/internal/models"
	"github.com/dynexia/portal/internal/storage"
)

func newProjectHandler(t *testing.T, db *gorm.DB) *ProjectHandler {
	t.Helper()
	blobs, err := storage.NewFileStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	return NewProjectHandler(db, testGate(), blobs, zap.NewNop())
}

func getProject(t *testing.T, h *ProjectHandler, id uint, u models.User) *httptest.ResponseRecorder {
	t.Helper()
	req := asUser(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/projects/%d", id), nil), u)
	req.SetPathValue("id", fmt.Sprint(id))
	w := httptest.NewRecorder()
	h.Get(w, req)
	return w
}

func TestProjectTeamAccessLifecycle(t *testing.T) {
	db := setupTestDB(t)
	h := newProjectHandler(t, db)
	alice := seedUser(t, db, "alice@test", models.RoleClient)
	bob := seedUser(t, db, "bob@test", models.RoleClient)

	// Alice creates a project.
	body := `{"name":"Site Redesign","description":"rebuild","startDate":"2026-01-01","dueDate":"2026-06-01"}`
	w := doJSON(t, h.Create, http.MethodPost, "/api/projects", strings.NewReader(body), alice)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201 got %d (%s)", w.Code, w.Body.String())
	}
	var created models.Project
	decodeData(t, w, &created)

	// Bob cannot see it: the project exists, so this is Forbidden, not NotFound.
	if w := getProject(t, h, created.ID, bob); w.Code != http.StatusForbidden {
		t.Fatalf("stranger read: expected 403 got %d", w.Code)
	}

	// Alice adds Bob to the team.
	addBody := fmt.Sprintf(`{"userId":%d,"role":"developer"}`, bob.ID)
	req := asUser(httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(addBody)), alice)
	req.SetPathValue("id", fmt.Sprint(created.ID))
	rec := httptest.NewRecorder()
	h.AddTeamMember(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add member: expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}

	// Bob can now read and update, but not delete.
	if w := getProject(t, h, created.ID, bob); w.Code != http.StatusOK {
		t.Fatalf("member read: expected 200 got %d", w.Code)
	}
	upd := `{"name":"Site Redesign","description":"rebuild","status":"In Progress","startDate":"2026-01-01","dueDate":"2026-06-01","progress":25}`
	req = asUser(httptest.NewRequest(http.MethodPut, "/x", strings.NewReader(upd)), bob)
	req.SetPathValue("id", fmt.Sprint(created.ID))
	rec = httptest.NewRecorder()
	h.Update(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("member update: expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	req = asUser(httptest.NewRequest(http.MethodDelete, "/x", nil), bob)
	req.SetPathValue("id", fmt.Sprint(created.ID))
	rec = httptest.NewRecorder()
	h.Delete(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("member delete: expected 403 got %d", rec.Code)
	}

	// The owner deletes; subsequent reads are NotFound for everyone.
	req = asUser(httptest.NewRequest(http.MethodDelete, "/x", nil), alice)
	req.SetPathValue("id", fmt.Sprint(created.ID))
	rec = httptest.NewRecorder()
	h.Delete(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner delete: expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if w := getProject(t, h, created.ID, alice); w.Code != http.StatusNotFound {
		t.Fatalf("read after delete: expected 404 got %d", w.Code)
	}
}

func TestProjectListScopedToVisibleSet(t *testing.T) {
	db := setupTestDB(t)
	h := newProjectHandler(t, db)
	alice := seedUser(t, db, "alice@test", models.RoleClient)
	bob := seedUser(t, db, "bob@test", models.RoleClient)

	mine := seedProject(t, db, alice, "mine")
	shared := seedProject(t, db, bob, "shared")
	seedProject(t, db, bob, "hidden")
	if err := db.Create(&models.TeamMember{ProjectID: shared.ID, UserID: alice.ID, Role: "qa"}).Error; err != nil {
		t.Fatalf("team member: %v", err)
	}

	w := doJSON(t, h.List, http.MethodGet, "/api/projects", nil, alice)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var projects []models.Project
	decodeData(t, w, &projects)
	if len(projects) != 2 {
		t.Fatalf("expected 2 visible projects, got %d", len(projects))
	}
	seen := map[uint]bool{}
	for _, p := range projects {
		seen[p.ID] = true
	}
	if !seen[mine.ID] || !seen[shared.ID] {
		t.Fatalf("visible set wrong: %v", seen)
	}
}

func TestProjectListPagination(t *testing.T) {
	db := setupTestDB(t)
	h := newProjectHandler(t, db)
	alice := seedUser(t, db, "alice@test", models.RoleClient)
	for i := 0; i < 5; i++ {
		seedProject(t, db, alice, fmt.Sprintf("p%d", i))
	}

	w := doJSON(t, h.List, http.MethodGet, "/api/projects?page=2&limit=2&sort=name", nil, alice)
	env := decodeEnvelope(t, w)
	if env.Count == nil || *env.Count != 2 {
		t.Fatalf("expected count 2, got %v", env.Count)
	}
	if env.Pagination == nil || env.Pagination.Next == nil || env.Pagination.Prev == nil {
		t.Fatalf("expected both next and prev on a middle page: %s", w.Body.String())
	}
	var projects []models.Project
	decodeData(t, w, &projects)
	if projects[0].Name != "p2" || projects[1].Name != "p3" {
		t.Fatalf("sort/page wrong: %s, %s", projects[0].Name, projects[1].Name)
	}
}

func TestProjectCreateValidation(t *testing.T) {
	db := setupTestDB(t)
	h := newProjectHandler(t, db)
	alice := seedUser(t, db, "alice@test", models.RoleClient)

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"description":"d","startDate":"2026-01-01","dueDate":"2026-02-01"}`},
		{"bad status", `{"name":"n","description":"d","status":"Bogus","startDate":"2026-01-01","dueDate":"2026-02-01"}`},
		{"bad date", `{"name":"n","description":"d","startDate":"not-a-date","dueDate":"2026-02-01"}`},
		{"progress over 100", `{"name":"n","description":"d","startDate":"2026-01-01","dueDate":"2026-02-01","progress":101}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, h.Create, http.MethodPost, "/api/projects", strings.NewReader(tc.body), alice)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d (%s)", w.Code, w.Body.String())
			}
		})
	}
}

func TestProjectDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	h := newProjectHandler(t, db)
	alice := seedUser(t, db, "alice@test", models.RoleClient)
	p := seedProject(t, db, alice, "doomed")

	db.Create(&models.Milestone{ProjectID: p.ID, Name: "m1"})
	pid := p.ID
	db.Create(&models.Document{Name: "d1", URL: "/uploads/k", ObjectKey: "k", MimeType: "text/plain", UserID: alice.ID, ProjectID: &pid})
	db.Create(&models.Message{Content: "hi", SenderID: alice.ID, ProjectID: &pid})

	req := asUser(httptest.NewRequest(http.MethodDelete, "/x", nil), alice)
	req.SetPathValue("id", fmt.Sprint(p.ID))
	rec := httptest.NewRecorder()
	h.Delete(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}

	for table, model := range map[string]any{
		"milestones": &models.Milestone{}, "documents": &models.Document{}, "messages": &models.Message{},
	} {
		var n int64
		db.Model(model).Where("project_id = ?", p.ID).Count(&n)
		if n != 0 {
			t.Errorf("%s not cascaded, %d rows left", table, n)
		}
	}
}

func TestAddTeamMemberDuplicateConflicts(t *testing.T) {
	db := setupTestDB(t)
	h := newProjectHandler(t, db)
	alice := seedUser(t, db, "alice@test", models.RoleClient)
	bob := seedUser(t, db, "bob@test", models.RoleClient)
	p := seedProject(t, db, alice, "proj")

	add := func() *httptest.ResponseRecorder {
		body := fmt.Sprintf(`{"userId":%d,"role":"dev"}`, bob.ID)
		req := asUser(httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body)), alice)
		req.SetPathValue("id", fmt.Sprint(p.ID))
		w := httptest.NewRecorder()
		h.AddTeamMember(w, req)
		return w
	}
	if w := add(); w.Code != http.StatusCreated {
		t.Fatalf("first add: expected 201 got %d (%s)", w.Code, w.Body.String())
	}
	if w := add(); w.Code != http.StatusConflict {
		t.Fatalf("second add: expected 409 got %d (%s)", w.Code, w.Body.String())
	}
}
