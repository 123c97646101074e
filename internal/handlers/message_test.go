package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dynexia/portal/internal/models"
)

func TestMessageCreateTargetValidation(t *testing.T) {
	db := setupTestDB(t)
	h := NewMessageHandler(db, testGate())
	alice := seedUser(t, db, "alice@test", models.RoleClient)
	bob := seedUser(t, db, "bob@test", models.RoleClient)
	p := seedProject(t, db, alice, "proj")

	cases := []struct {
		name string
		body string
		want int
	}{
		{"no target", `{"content":"hi"}`, http.StatusBadRequest},
		{"both targets", fmt.Sprintf(`{"content":"hi","receiverId":%d,"projectId":%d}`, bob.ID, p.ID), http.StatusBadRequest},
		{"empty content", fmt.Sprintf(`{"content":"  ","receiverId":%d}`, bob.ID), http.StatusBadRequest},
		{"direct ok", fmt.Sprintf(`{"content":"hi","receiverId":%d}`, bob.ID), http.StatusCreated},
		{"broadcast ok", fmt.Sprintf(`{"content":"hi","projectId":%d}`, p.ID), http.StatusCreated},
		{"missing receiver", `{"content":"hi","receiverId":9999}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, h.Create, http.MethodPost, "/api/messages", strings.NewReader(tc.body), alice)
			if w.Code != tc.want {
				t.Fatalf("expected %d got %d (%s)", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestMessageBroadcastRequiresProjectAccess(t *testing.T) {
	db := setupTestDB(t)
	h := NewMessageHandler(db, testGate())
	alice := seedUser(t, db, "alice@test", models.RoleClient)
	mallory := seedUser(t, db, "mallory@test", models.RoleClient)
	p := seedProject(t, db, alice, "proj")

	body := fmt.Sprintf(`{"content":"hi","projectId":%d}`, p.ID)
	w := doJSON(t, h.Create, http.MethodPost, "/api/messages", strings.NewReader(body), mallory)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d (%s)", w.Code, w.Body.String())
	}
}

func TestMessageMarkRead(t *testing.T) {
	db := setupTestDB(t)
	h := NewMessageHandler(db, testGate())
	alice := seedUser(t, db, "alice@test", models.RoleClient)
	bob := seedUser(t, db, "bob@test", models.RoleClient)

	bobID := bob.ID
	m := models.Message{Content: "hi", SenderID: alice.ID, ReceiverID: &bobID}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seed message: %v", err)
	}

	markRead := func(u models.User) *httptest.ResponseRecorder {
		req := asUser(httptest.NewRequest(http.MethodPost, "/x", nil), u)
		req.SetPathValue("id", fmt.Sprint(m.ID))
		w := httptest.NewRecorder()
		h.MarkRead(w, req)
		return w
	}

	// The sender cannot mark their own direct message as read.
	if w := markRead(alice); w.Code != http.StatusForbidden {
		t.Fatalf("sender mark read: expected 403 got %d", w.Code)
	}
	if w := markRead(bob); w.Code != http.StatusOK {
		t.Fatalf("receiver mark read: expected 200 got %d (%s)", w.Code, w.Body.String())
	}
	// Idempotent on repeat.
	if w := markRead(bob); w.Code != http.StatusOK {
		t.Fatalf("repeat mark read: expected 200 got %d", w.Code)
	}
	var stored models.Message
	db.First(&stored, m.ID)
	if !stored.Read {
		t.Fatal("message not marked read")
	}
}

func TestMessageListVisibleSet(t *testing.T) {
	db := setupTestDB(t)
	h := NewMessageHandler(db, testGate())
	alice := seedUser(t, db, "alice@test", models.RoleClient)
	bob := seedUser(t, db, "bob@test", models.RoleClient)
	carol := seedUser(t, db, "carol@test", models.RoleClient)
	p := seedProject(t, db, bob, "proj")
	db.Create(&models.TeamMember{ProjectID: p.ID, UserID: alice.ID, Role: "qa"})

	aliceID, carolID, pid := alice.ID, carol.ID, p.ID
	db.Create(&models.Message{Content: "to alice", SenderID: bob.ID, ReceiverID: &aliceID})
	db.Create(&models.Message{Content: "broadcast", SenderID: bob.ID, ProjectID: &pid})
	db.Create(&models.Message{Content: "private", SenderID: bob.ID, ReceiverID: &carolID})

	w := doJSON(t, h.List, http.MethodGet, "/api/messages", nil, alice)
	var visible []models.Message
	decodeData(t, w, &visible)
	if len(visible) != 2 {
		t.Fatalf("expected 2 visible messages, got %d (%s)", len(visible), w.Body.String())
	}
	for _, m := range visible {
		if m.Content == "private" {
			t.Fatal("saw a message addressed to someone else")
		}
	}
}
