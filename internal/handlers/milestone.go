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

var milestoneColumns = map[string]bool{
	"name": true, "status": true, "date": true, "project_id": true,
	"created_at": true, "updated_at": true,
}

// MilestoneHandler serves the project-nested collection routes and the
// flat single-milestone routes. Every decision goes through the owning
// project's snapshot.
type MilestoneHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate[gate.Subject]
}

func NewMilestoneHandler(db *gorm.DB, g *gate.Gate[gate.Subject]) *MilestoneHandler {
	return &MilestoneHandler{DB: db, Gate: g}
}

// loadMilestone fetches a milestone together with its owning project.
func (h *MilestoneHandler) loadMilestone(id uint) (*models.Milestone, *models.Project, error) {
	var m models.Milestone
	if err := h.DB.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("milestone")
		}
		return nil, nil, apperr.Upstream("load milestone", err)
	}
	p, err := loadProject(h.DB, m.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return &m, p, nil
}

type milestoneRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Date        string `json:"date"`
}

func (h *MilestoneHandler) validate(req *milestoneRequest) (validation.Violations, *milestoneRequest) {
	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.MaxLen("name", req.Name, models.MilestoneNameMaxLen, v)
	validation.OneOf("status", req.Status, models.MilestoneStatuses, v)
	return v, req
}

// ListForProject handles GET /api/projects/{id}/milestones.
func (h *MilestoneHandler) ListForProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	p, err := loadProject(h.DB, projectID)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionView, policy.ResourceProject, p); err != nil {
		httpx.Fail(w, err)
		return
	}

	params := ParseList(r)
	base := h.DB.Model(&models.Milestone{}).Where("project_id = ?", p.ID)
	var total int64
	if err := base.Count(&total).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("count milestones", err))
		return
	}
	var milestones []models.Milestone
	q := params.Apply(h.DB.Where("project_id = ?", p.ID), milestoneColumns)
	if err := q.Find(&milestones).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("list milestones", err))
		return
	}
	httpx.JSONList(w, http.StatusOK, milestones, len(milestones), paginationMeta(total, params))
}

// Create handles POST /api/projects/{id}/milestones. Requires write access
// to the owning project.
func (h *MilestoneHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	p, err := loadProject(h.DB, projectID)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionCreate, policy.ResourceMilestone, p); err != nil {
		httpx.Fail(w, err)
		return
	}

	var req milestoneRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Fail(w, err)
		return
	}
	if req.Status == "" {
		req.Status = "Not Started"
	}
	v, _ := h.validate(&req)
	date := validation.Date("date", req.Date, v)
	if !v.Empty() {
		httpx.Fail(w, apperr.Validation(v))
		return
	}

	m := models.Milestone{
		ProjectID:   p.ID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Status:      req.Status,
		Date:        date,
	}
	if err := h.DB.Create(&m).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("create milestone", err))
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

// Get handles GET /api/milestones/{id}.
func (h *MilestoneHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	m, p, err := h.loadMilestone(id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionView, policy.ResourceMilestone, p); err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

// Update handles PUT /api/milestones/{id}.
func (h *MilestoneHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	m, p, err := h.loadMilestone(id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionUpdate, policy.ResourceMilestone, p); err != nil {
		httpx.Fail(w, err)
		return
	}

	var req milestoneRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Fail(w, err)
		return
	}
	if req.Status == "" {
		req.Status = m.Status
	}
	v, _ := h.validate(&req)
	date := validation.Date("date", req.Date, v)
	if !v.Empty() {
		httpx.Fail(w, apperr.Validation(v))
		return
	}

	m.Name = strings.TrimSpace(req.Name)
	m.Description = req.Description
	m.Status = req.Status
	m.Date = date
	if err := h.DB.Save(m).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("update milestone", err))
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

// Delete handles DELETE /api/milestones/{id}.
func (h *MilestoneHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	m, p, err := h.loadMilestone(id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionDelete, policy.ResourceMilestone, p); err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := h.DB.Delete(&models.Milestone{}, m.ID).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("delete milestone", err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}
