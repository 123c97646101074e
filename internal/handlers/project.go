package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dynexia/portal/internal/apperr"
	"github.com/dynexia/portal/internal/gate"
	"github.com/dynexia/portal/internal/httpx"
	"github.com/dynexia/portal/internal/models"
	"github.com/dynexia/portal/internal/policy"
	"github.com/dynexia/portal/internal/storage"
	"github.com/dynexia/portal/internal/validation"
)

var projectColumns = map[string]bool{
	"name": true, "status": true, "start_date": true, "due_date": true,
	"progress": true, "created_at": true, "updated_at": true,
}

type ProjectHandler struct {
	DB    *gorm.DB
	Gate  *gate.Gate[gate.Subject]
	Blobs storage.BlobStore
	Log   *zap.Logger
}

func NewProjectHandler(db *gorm.DB, g *gate.Gate[gate.Subject], blobs storage.BlobStore, log *zap.Logger) *ProjectHandler {
	return &ProjectHandler{DB: db, Gate: g, Blobs: blobs, Log: log}
}

// visibleProjects scopes a query to projects the subject may read: their own
// plus those whose team lists them. This is the same rule ProjectPolicy
// applies to single reads, expressed as a pre-filter.
func visibleProjects(db *gorm.DB, uid uint) *gorm.DB {
	member := db.Table("team_members").Select("project_id").Where("user_id = ?", uid)
	return db.Where("user_id = ? OR id IN (?)", uid, member)
}

// loadProject fetches a project with its team preloaded.
func loadProject(db *gorm.DB, id uint) (*models.Project, error) {
	var p models.Project
	if err := db.Preload("Team.User").First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("project")
		}
		return nil, apperr.Upstream("load project", err)
	}
	return &p, nil
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	StartDate   string `json:"startDate"`
	DueDate     string `json:"dueDate"`
	Progress    *int   `json:"progress"`
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	s, err := subject(r)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	params := ParseList(r)

	base := visibleProjects(h.DB, s.UserID).Model(&models.Project{})
	var total int64
	if err := base.Count(&total).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("count projects", err))
		return
	}
	var projects []models.Project
	q := params.Apply(visibleProjects(h.DB, s.UserID), projectColumns).Preload("Team.User")
	if err := q.Find(&projects).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("list projects", err))
		return
	}
	httpx.JSONList(w, http.StatusOK, projects, len(projects), paginationMeta(total, params))
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, err := subject(r)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Fail(w, err)
		return
	}
	if req.Status == "" {
		req.Status = "Planning"
	}

	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.MaxLen("name", req.Name, models.ProjectNameMaxLen, v)
	validation.Required("description", req.Description, v)
	validation.OneOf("status", req.Status, models.ProjectStatuses, v)
	start := validation.Date("startDate", req.StartDate, v)
	due := validation.Date("dueDate", req.DueDate, v)
	progress := 0
	if req.Progress != nil {
		progress = *req.Progress
		validation.RangeInt("progress", progress, 0, 100, v)
	}
	if !v.Empty() {
		httpx.Fail(w, apperr.Validation(v))
		return
	}

	p := models.Project{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Status:      req.Status,
		StartDate:   start,
		DueDate:     due,
		Progress:    progress,
		UserID:      s.UserID,
	}
	if err := h.DB.Create(&p).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("create project", err))
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

// projectDetail embeds the project's related records, matching the portal's
// single-project screen.
type projectDetail struct {
	models.Project
	Milestones []models.Milestone `json:"milestones"`
	Documents  []models.Document  `json:"documents"`
	Messages   []models.Message   `json:"messages"`
}

// Get handles GET /api/projects/{id}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	p, err := loadProject(h.DB, id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionView, policy.ResourceProject, p); err != nil {
		httpx.Fail(w, err)
		return
	}

	detail := projectDetail{Project: *p}
	h.DB.Where("project_id = ?", p.ID).Order("date asc").Find(&detail.Milestones)
	h.DB.Where("project_id = ?", p.ID).Order("created_at desc").Find(&detail.Documents)
	h.DB.Where("project_id = ?", p.ID).Order("created_at asc").Find(&detail.Messages)
	httpx.JSON(w, http.StatusOK, detail)
}

// Update handles PUT /api/projects/{id}.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	p, err := loadProject(h.DB, id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionUpdate, policy.ResourceProject, p); err != nil {
		httpx.Fail(w, err)
		return
	}

	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Fail(w, err)
		return
	}
	if req.Status == "" {
		req.Status = p.Status
	}

	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.MaxLen("name", req.Name, models.ProjectNameMaxLen, v)
	validation.Required("description", req.Description, v)
	validation.OneOf("status", req.Status, models.ProjectStatuses, v)
	start := validation.Date("startDate", req.StartDate, v)
	due := validation.Date("dueDate", req.DueDate, v)
	progress := p.Progress
	if req.Progress != nil {
		progress = *req.Progress
		validation.RangeInt("progress", progress, 0, 100, v)
	}
	if !v.Empty() {
		httpx.Fail(w, apperr.Validation(v))
		return
	}

	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	p.Status = req.Status
	p.StartDate = start
	p.DueDate = due
	p.Progress = progress
	if err := h.DB.Save(p).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("update project", err))
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/projects/{id}. Milestones, documents, messages,
// and team rows go with the project in one transaction; document blobs are
// removed best-effort afterwards.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	p, err := loadProject(h.DB, id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionDelete, policy.ResourceProject, p); err != nil {
		httpx.Fail(w, err)
		return
	}

	var docs []models.Document
	if err := h.DB.Where("project_id = ?", p.ID).Find(&docs).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("load project documents", err))
		return
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.Milestone{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.Document{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, p.ID).Error
	})
	if err != nil {
		httpx.Fail(w, apperr.Upstream("delete project", err))
		return
	}

	for _, d := range docs {
		if d.ObjectKey == "" {
			continue
		}
		if err := h.Blobs.Remove(r.Context(), d.ObjectKey); err != nil {
			h.Log.Warn("blob removal failed during project delete",
				zap.String("object_key", d.ObjectKey), zap.Error(err))
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// AddTeamMember handles POST /api/projects/{id}/team. Owner only.
func (h *ProjectHandler) AddTeamMember(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	p, err := loadProject(h.DB, id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionManageTeam, policy.ResourceProject, p); err != nil {
		httpx.Fail(w, err)
		return
	}

	var req struct {
		UserID uint   `json:"userId"`
		Email  string `json:"email"`
		Role   string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httpx.Fail(w, err)
		return
	}
	v := validation.Violations{}
	validation.Required("role", req.Role, v)
	if req.UserID == 0 && strings.TrimSpace(req.Email) == "" {
		v["userId"] = "user_id_or_email_required"
	}
	if !v.Empty() {
		httpx.Fail(w, apperr.Validation(v))
		return
	}

	var user models.User
	q := h.DB
	if req.UserID != 0 {
		q = q.Where("id = ?", req.UserID)
	} else {
		q = q.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email)))
	}
	if err := q.First(&user).Error; err != nil {
		httpx.Fail(w, apperr.NotFound("user"))
		return
	}
	if user.ID == p.UserID {
		httpx.Fail(w, apperr.Validation(map[string]string{"userId": "owner_is_implicitly_authorized"}))
		return
	}

	member := models.TeamMember{ProjectID: p.ID, UserID: user.ID, Role: strings.TrimSpace(req.Role)}
	if err := h.DB.Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			httpx.Fail(w, apperr.Conflict("user is already a team member"))
			return
		}
		httpx.Fail(w, apperr.Upstream("add team member", err))
		return
	}
	member.User = &user
	httpx.JSON(w, http.StatusCreated, member)
}

// RemoveTeamMember handles DELETE /api/projects/{id}/team/{userId}. Owner only.
func (h *ProjectHandler) RemoveTeamMember(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	memberID, err := idParam(r, "userId")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	p, err := loadProject(h.DB, id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionManageTeam, policy.ResourceProject, p); err != nil {
		httpx.Fail(w, err)
		return
	}

	res := h.DB.Where("project_id = ? AND user_id = ?", p.ID, memberID).Delete(&models.TeamMember{})
	if res.Error != nil {
		httpx.Fail(w, apperr.Upstream("remove team member", res.Error))
		return
	}
	if res.RowsAffected == 0 {
		httpx.Fail(w, apperr.NotFound("team member"))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"removed": true})
}
