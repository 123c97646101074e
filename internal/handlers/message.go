package handlers

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/dynexia/portal/internal/apperr"
	"github.com/dynexia/portal/internal/gate"
	"github.com/dynexia/portal/internal/httpx"
	"github.com/dynexia/portal/internal/models"
	"github.com/dynexia/portal/internal/policy"
	"github.com/dynexia/portal/internal/validation"
)

var messageColumns = map[string]bool{
	"read": true, "sender_id": true, "receiver_id": true, "project_id": true,
	"created_at": true, "updated_at": true,
}

type MessageHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate[gate.Subject]
}

func NewMessageHandler(db *gorm.DB, g *gate.Gate[gate.Subject]) *MessageHandler {
	return &MessageHandler{DB: db, Gate: g}
}

// loadMessage fetches a message and, for project broadcasts, the project
// snapshot the policy needs.
func (h *MessageHandler) loadMessage(id uint) (policy.MessageResource, error) {
	var m models.Message
	if err := h.DB.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return policy.MessageResource{}, apperr.NotFound("message")
		}
		return policy.MessageResource{}, apperr.Upstream("load message", err)
	}
	res := policy.MessageResource{Message: &m}
	if m.ProjectID != nil {
		p, err := loadProject(h.DB, *m.ProjectID)
		if err != nil {
			return policy.MessageResource{}, err
		}
		res.Project = p
	}
	return res, nil
}

// List handles GET /api/messages: everything the caller sent, received, or
// can read through a project.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	s, err := subject(r)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	params := ParseList(r)

	visible := func(db *gorm.DB) *gorm.DB {
		member := db.Table("team_members").Select("project_id").Where("user_id = ?", s.UserID)
		owned := db.Table("projects").Select("id").Where("user_id = ?", s.UserID)
		return db.Where(
			"sender_id = ? OR receiver_id = ? OR project_id IN (?) OR project_id IN (?)",
			s.UserID, s.UserID, owned, member,
		)
	}
	var total int64
	if err := visible(h.DB).Model(&models.Message{}).Count(&total).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("count messages", err))
		return
	}
	var messages []models.Message
	if err := params.Apply(visible(h.DB), messageColumns).Find(&messages).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("list messages", err))
		return
	}
	httpx.JSONList(w, http.StatusOK, messages, len(messages), paginationMeta(total, params))
}

// Create handles POST /api/messages. A message targets exactly one of a
// receiver or a project.
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, err := subject(r)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	var req struct {
		Content    string `json:"content"`
		ReceiverID *uint  `json:"receiverId"`
		ProjectID  *uint  `json:"projectId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httpx.Fail(w, err)
		return
	}

	v := validation.Violations{}
	validation.Required("content", req.Content, v)
	if (req.ReceiverID == nil) == (req.ProjectID == nil) {
		v["target"] = "exactly_one_of_receiver_or_project"
	}
	if !v.Empty() {
		httpx.Fail(w, apperr.Validation(v))
		return
	}

	if req.ReceiverID != nil {
		var receiver models.User
		if err := h.DB.First(&receiver, *req.ReceiverID).Error; err != nil {
			httpx.Fail(w, apperr.NotFound("receiver"))
			return
		}
	} else {
		p, err := loadProject(h.DB, *req.ProjectID)
		if err != nil {
			httpx.Fail(w, err)
			return
		}
		// Broadcasting into a project requires read access to it.
		if err := authorize(h.Gate, r, gate.ActionView, policy.ResourceProject, p); err != nil {
			httpx.Fail(w, err)
			return
		}
	}

	m := models.Message{
		Content:    strings.TrimSpace(req.Content),
		SenderID:   s.UserID,
		ReceiverID: req.ReceiverID,
		ProjectID:  req.ProjectID,
	}
	if err := h.DB.Create(&m).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("create message", err))
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

// Get handles GET /api/messages/{id}.
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	res, err := h.loadMessage(id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionView, policy.ResourceMessage, res); err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res.Message)
}

// MarkRead handles POST /api/messages/{id}/read. Idempotent.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	res, err := h.loadMessage(id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionUpdate, policy.ResourceMessage, res); err != nil {
		httpx.Fail(w, err)
		return
	}
	if !res.Message.Read {
		if err := h.DB.Model(res.Message).Update("read", true).Error; err != nil {
			httpx.Fail(w, apperr.Upstream("mark message read", err))
			return
		}
		res.Message.Read = true
	}
	httpx.JSON(w, http.StatusOK, res.Message)
}
