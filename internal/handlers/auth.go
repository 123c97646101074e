package handlers

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/dynexia/portal/internal/apperr"
	"github.com/dynexia/portal/internal/auth"
	"github.com/dynexia/portal/internal/httpx"
	"github.com/dynexia/portal/internal/models"
	"github.com/dynexia/portal/internal/validation"
)

type AuthHandler struct {
	DB *gorm.DB
	// Invalidate clears the cached subject for a user after role or
	// credential changes. Optional.
	Invalidate func(uid uint)
}

func NewAuthHandler(db *gorm.DB) *AuthHandler { return &AuthHandler{DB: db} }

type credentialsResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Register handles POST /api/auth/register. New accounts are always clients;
// admins come from seeding.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httpx.Fail(w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.Required("email", req.Email, v)
	if len(req.Password) < 8 {
		v["password"] = "must_be_at_least_8_chars"
	}
	if !v.Empty() {
		httpx.Fail(w, apperr.Validation(v))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	user := models.User{Name: strings.TrimSpace(req.Name), Email: req.Email, Password: string(hash), Role: models.RoleClient}
	if err := h.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			httpx.Fail(w, apperr.Conflict("email already registered"))
			return
		}
		httpx.Fail(w, apperr.Upstream("create user", err))
		return
	}

	token, err := auth.IssueToken(user.ID)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusCreated, credentialsResponse{User: user, Token: token})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httpx.Fail(w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	v := validation.Violations{}
	validation.Required("email", req.Email, v)
	validation.Required("password", req.Password, v)
	if !v.Empty() {
		httpx.Fail(w, apperr.Validation(v))
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		// same response as a wrong password; do not reveal which
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}

	token, err := auth.IssueToken(user.ID)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, credentialsResponse{User: user, Token: token})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	auth.ClearSession(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	s, err := subject(r)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	var user models.User
	if err := h.DB.First(&user, s.UserID).Error; err != nil {
		httpx.Fail(w, apperr.NotFound("user"))
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	s, err := subject(r)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	var req struct {
		Current string `json:"current"`
		New     string `json:"new"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httpx.Fail(w, err)
		return
	}

	var user models.User
	if err := h.DB.First(&user, s.UserID).Error; err != nil {
		httpx.Fail(w, apperr.NotFound("user"))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Current)) != nil {
		httpx.Fail(w, apperr.Validation(map[string]string{"current": "incorrect_password"}))
		return
	}
	if len(req.New) < 8 {
		httpx.Fail(w, apperr.Validation(map[string]string{"new": "must_be_at_least_8_chars"}))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.New), bcrypt.DefaultCost)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := h.DB.Model(&user).Update("password", string(hash)).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("update password", err))
		return
	}
	if h.Invalidate != nil {
		h.Invalidate(user.ID)
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}
