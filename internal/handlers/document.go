package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/dynexia/portal/internal/apperr"
	"github.com/dynexia/portal/internal/gate"
	"github.com/dynexia/portal/internal/httpx"
	"github.com/dynexia/portal/internal/models"
	"github.com/dynexia/portal/internal/policy"
	"github.com/dynexia/portal/internal/services"
	"github.com/dynexia/portal/internal/validation"
)

var documentColumns = map[string]bool{
	"name": true, "size": true, "mime_type": true, "document_type": true,
	"project_id": true, "created_at": true, "updated_at": true,
}

// allowedMimePrefixes limits uploads to document-like content.
var allowedMimePrefixes = []string{"image/", "application/", "text/"}

type DocumentHandler struct {
	DB       *gorm.DB
	Gate     *gate.Gate[gate.Subject]
	Docs     *services.DocumentService
	MaxBytes int64
}

func NewDocumentHandler(db *gorm.DB, g *gate.Gate[gate.Subject], docs *services.DocumentService, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{DB: db, Gate: g, Docs: docs, MaxBytes: maxBytes}
}

// loadDocument fetches a document and, when attached, its project snapshot.
func (h *DocumentHandler) loadDocument(id uint) (policy.DocumentResource, error) {
	var d models.Document
	if err := h.DB.First(&d, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return policy.DocumentResource{}, apperr.NotFound("document")
		}
		return policy.DocumentResource{}, apperr.Upstream("load document", err)
	}
	res := policy.DocumentResource{Document: &d}
	if d.ProjectID != nil {
		p, err := loadProject(h.DB, *d.ProjectID)
		if err != nil {
			return policy.DocumentResource{}, err
		}
		res.Project = p
	}
	return res, nil
}

// List handles GET /api/documents: the caller's own uploads plus documents
// attached to projects they can read.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	s, err := subject(r)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	params := ParseList(r)

	visible := func(db *gorm.DB) *gorm.DB {
		member := db.Table("team_members").Select("project_id").Where("user_id = ?", s.UserID)
		owned := db.Table("projects").Select("id").Where("user_id = ?", s.UserID)
		return db.Where("user_id = ? OR project_id IN (?) OR project_id IN (?)", s.UserID, owned, member)
	}
	if pid := r.URL.Query().Get("projectId"); pid != "" {
		id, err := strconv.ParseUint(pid, 10, 64)
		if err != nil {
			httpx.Fail(w, apperr.Validation(map[string]string{"projectId": "invalid_id"}))
			return
		}
		scoped := visible
		visible = func(db *gorm.DB) *gorm.DB {
			return scoped(db).Where("project_id = ?", uint(id))
		}
	}

	var total int64
	if err := visible(h.DB).Model(&models.Document{}).Count(&total).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("count documents", err))
		return
	}
	var docs []models.Document
	if err := params.Apply(visible(h.DB), documentColumns).Find(&docs).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("list documents", err))
		return
	}
	httpx.JSONList(w, http.StatusOK, docs, len(docs), paginationMeta(total, params))
}

func mimeAllowed(mt string) bool {
	for _, prefix := range allowedMimePrefixes {
		if strings.HasPrefix(mt, prefix) {
			return true
		}
	}
	return false
}

func fileContentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Upload handles POST /api/documents (multipart). The file field is "file";
// name, description, documentType, and projectId come from the form.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	s, err := subject(r)
	if err != nil {
		httpx.Fail(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		httpx.Fail(w, apperr.Validation(map[string]string{"file": "too_large_or_malformed"}))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Fail(w, apperr.Validation(map[string]string{"file": "required"}))
		return
	}
	defer file.Close()

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = header.Filename
	}
	v := validation.Violations{}
	validation.Required("name", name, v)
	validation.MaxLen("name", name, models.DocumentNameMaxLen, v)
	mimeType := fileContentType(header)
	if !mimeAllowed(mimeType) {
		v["file"] = "unsupported_media_type"
	}
	if header.Size > h.MaxBytes {
		v["file"] = "too_large"
	}

	var projectID *uint
	var project *models.Project
	if pid := strings.TrimSpace(r.FormValue("projectId")); pid != "" {
		id, err := strconv.ParseUint(pid, 10, 64)
		if err != nil {
			v["projectId"] = "invalid_id"
		} else {
			p, err := loadProject(h.DB, uint(id))
			if err != nil {
				httpx.Fail(w, err)
				return
			}
			project = p
			u := uint(id)
			projectID = &u
		}
	}
	if !v.Empty() {
		httpx.Fail(w, apperr.Validation(v))
		return
	}

	// Attaching to a project requires write access to that project.
	var createRes any
	if project != nil {
		createRes = project
	}
	if err := authorize(h.Gate, r, gate.ActionCreate, policy.ResourceDocument, createRes); err != nil {
		httpx.Fail(w, err)
		return
	}

	doc := models.Document{
		Name:         name,
		Size:         header.Size,
		MimeType:     mimeType,
		Description:  r.FormValue("description"),
		DocumentType: r.FormValue("documentType"),
		UserID:       s.UserID,
		ProjectID:    projectID,
	}
	if err := h.Docs.Upload(r.Context(), &doc, file, header.Size); err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

// Get handles GET /api/documents/{id}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	res, err := h.loadDocument(id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionView, policy.ResourceDocument, res); err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res.Document)
}

// Delete handles DELETE /api/documents/{id}. The row goes first; the blob is
// removed best-effort afterwards.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	res, err := h.loadDocument(id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionDelete, policy.ResourceDocument, res); err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := h.Docs.Delete(r.Context(), res.Document); err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}
