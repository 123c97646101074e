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

// OnboardingHandler serves the caller's own intake record; there is no
// cross-user access here, admins included.
type OnboardingHandler struct {
	DB   *gorm.DB
	Gate *gate.Gate[gate.Subject]
}

func NewOnboardingHandler(db *gorm.DB, g *gate.Gate[gate.Subject]) *OnboardingHandler {
	return &OnboardingHandler{DB: db, Gate: g}
}

// Get handles GET /api/onboarding. Returns the subject's record, or an empty
// uncompleted one when they have not started.
func (h *OnboardingHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := subject(r)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	var o models.Onboarding
	err = h.DB.Where("user_id = ?", s.UserID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSON(w, http.StatusOK, models.Onboarding{UserID: s.UserID})
		return
	}
	if err != nil {
		httpx.Fail(w, apperr.Upstream("load onboarding", err))
		return
	}
	if err := authorize(h.Gate, r, gate.ActionView, policy.ResourceOnboarding, &o); err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

type onboardingRequest struct {
	CompanyName         string `json:"companyName"`
	Website             string `json:"website"`
	Industry            string `json:"industry"`
	ProjectType         string `json:"projectType"`
	ProjectGoals        string `json:"projectGoals"`
	InspirationWebsites string `json:"inspirationWebsites"`
	BrandColors         string `json:"brandColors"`
	Timeline            string `json:"timeline"`
	Budget              string `json:"budget"`
	AdditionalInfo      string `json:"additionalInfo"`
	Completed           bool   `json:"completed"`
}

// Upsert handles PUT /api/onboarding: creates the record on first write,
// replaces it afterwards. Always keyed to the caller.
func (h *OnboardingHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	s, err := subject(r)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	var req onboardingRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Fail(w, err)
		return
	}

	v := validation.Violations{}
	validation.Required("companyName", req.CompanyName, v)
	validation.Required("industry", req.Industry, v)
	validation.Required("projectType", req.ProjectType, v)
	validation.Required("projectGoals", req.ProjectGoals, v)
	if !v.Empty() {
		httpx.Fail(w, apperr.Validation(v))
		return
	}

	var existing models.Onboarding
	err = h.DB.Where("user_id = ?", s.UserID).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.Fail(w, apperr.Upstream("load onboarding", err))
		return
	}
	found := err == nil

	var res any
	if found {
		res = &existing
	}
	action := gate.ActionCreate
	if found {
		action = gate.ActionUpdate
	}
	if err := authorize(h.Gate, r, action, policy.ResourceOnboarding, res); err != nil {
		httpx.Fail(w, err)
		return
	}

	o := models.Onboarding{
		UserID:              s.UserID,
		CompanyName:         strings.TrimSpace(req.CompanyName),
		Website:             req.Website,
		Industry:            req.Industry,
		ProjectType:         req.ProjectType,
		ProjectGoals:        req.ProjectGoals,
		InspirationWebsites: req.InspirationWebsites,
		BrandColors:         req.BrandColors,
		Timeline:            req.Timeline,
		Budget:              req.Budget,
		AdditionalInfo:      req.AdditionalInfo,
		Completed:           req.Completed,
	}
	status := http.StatusCreated
	if found {
		o.ID = existing.ID
		o.CreatedAt = existing.CreatedAt
		status = http.StatusOK
	}
	if err := h.DB.Save(&o).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("save onboarding", err))
		return
	}
	httpx.JSON(w, status, o)
}
