package handlers

import (
	"errors"
	"fmt"
	"net/http"
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

var invoiceColumns = map[string]bool{
	"invoice_number": true, "amount": true, "status": true, "due_date": true,
	"user_id": true, "project_id": true, "created_at": true, "updated_at": true,
}

type InvoiceHandler struct {
	DB       *gorm.DB
	Gate     *gate.Gate[gate.Subject]
	Invoices *services.InvoiceService
}

func NewInvoiceHandler(db *gorm.DB, g *gate.Gate[gate.Subject], svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{DB: db, Gate: g, Invoices: svc}
}

func (h *InvoiceHandler) loadInvoice(id uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := h.DB.Preload("Items").First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("invoice")
		}
		return nil, apperr.Upstream("load invoice", err)
	}
	return &inv, nil
}

type invoiceItemRequest struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

type invoiceRequest struct {
	InvoiceNumber string               `json:"invoiceNumber"`
	Amount        float64              `json:"amount"`
	Status        string               `json:"status"`
	DueDate       string               `json:"dueDate"`
	Notes         string               `json:"notes"`
	UserID        uint                 `json:"userId"`
	ProjectID     *uint                `json:"projectId"`
	Items         []invoiceItemRequest `json:"items"`
}

// List handles GET /api/invoices: everything for admins, the caller's own
// invoices otherwise.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	s, err := subject(r)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	params := ParseList(r)

	scope := func(db *gorm.DB) *gorm.DB {
		if s.Admin {
			return db
		}
		return db.Where("user_id = ?", s.UserID)
	}
	var total int64
	if err := scope(h.DB.Model(&models.Invoice{})).Count(&total).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("count invoices", err))
		return
	}
	var invoices []models.Invoice
	q := params.Apply(scope(h.DB), invoiceColumns).Preload("Items")
	if err := q.Find(&invoices).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("list invoices", err))
		return
	}
	httpx.JSONList(w, http.StatusOK, invoices, len(invoices), paginationMeta(total, params))
}

// Create handles POST /api/invoices. Admin only; the billed user must exist
// and the number is assigned by the service when absent.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := authorize(h.Gate, r, gate.ActionCreate, policy.ResourceInvoice, nil); err != nil {
		httpx.Fail(w, err)
		return
	}
	var req invoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Fail(w, err)
		return
	}
	if req.Status == "" {
		req.Status = "Pending"
	}

	v := validation.Violations{}
	validation.NonNegative("amount", req.Amount, v)
	validation.OneOf("status", req.Status, models.InvoiceStatuses, v)
	due := validation.Date("dueDate", req.DueDate, v)
	if req.UserID == 0 {
		v["userId"] = "required"
	}
	for i, item := range req.Items {
		validation.Required(fmt.Sprintf("items.%d.description", i), item.Description, v)
		validation.MinInt(fmt.Sprintf("items.%d.quantity", i), item.Quantity, 1, v)
		validation.NonNegative(fmt.Sprintf("items.%d.rate", i), item.Rate, v)
		validation.NonNegative(fmt.Sprintf("items.%d.amount", i), item.Amount, v)
	}
	if !v.Empty() {
		httpx.Fail(w, apperr.Validation(v))
		return
	}

	var billed models.User
	if err := h.DB.First(&billed, req.UserID).Error; err != nil {
		httpx.Fail(w, apperr.NotFound("user"))
		return
	}
	if req.ProjectID != nil {
		var p models.Project
		if err := h.DB.First(&p, *req.ProjectID).Error; err != nil {
			httpx.Fail(w, apperr.NotFound("project"))
			return
		}
	}

	inv := models.Invoice{
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		Amount:        req.Amount,
		Status:        req.Status,
		DueDate:       due,
		Notes:         req.Notes,
		UserID:        req.UserID,
		ProjectID:     req.ProjectID,
	}
	for _, item := range req.Items {
		inv.Items = append(inv.Items, models.InvoiceItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			Rate:        item.Rate,
			Amount:      item.Amount,
		})
	}
	if err := h.Invoices.Create(r.Context(), &inv); err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// Get handles GET /api/invoices/{id}.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	inv, err := h.loadInvoice(id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionView, policy.ResourceInvoice, inv); err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Update handles PUT /api/invoices/{id}. Clients may move their own invoice's
// status; admins may also edit amount, due date, and notes. The invoice
// number is immutable once assigned.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, err := subject(r)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	inv, err := h.loadInvoice(id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionUpdate, policy.ResourceInvoice, inv); err != nil {
		httpx.Fail(w, err)
		return
	}

	var req struct {
		Status  string   `json:"status"`
		Amount  *float64 `json:"amount"`
		DueDate string   `json:"dueDate"`
		Notes   *string  `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httpx.Fail(w, err)
		return
	}

	v := validation.Violations{}
	if req.Status != "" {
		validation.OneOf("status", req.Status, models.InvoiceStatuses, v)
	}
	if s.Admin {
		if req.Amount != nil {
			validation.NonNegative("amount", *req.Amount, v)
		}
	} else if req.Amount != nil || req.DueDate != "" || req.Notes != nil {
		httpx.Fail(w, apperr.Forbidden())
		return
	}
	var due = inv.DueDate
	if req.DueDate != "" {
		due = validation.Date("dueDate", req.DueDate, v)
	}
	if !v.Empty() {
		httpx.Fail(w, apperr.Validation(v))
		return
	}

	if req.Status != "" {
		inv.Status = req.Status
	}
	if s.Admin {
		if req.Amount != nil {
			inv.Amount = *req.Amount
		}
		inv.DueDate = due
		if req.Notes != nil {
			inv.Notes = *req.Notes
		}
	}
	if err := h.DB.Save(inv).Error; err != nil {
		httpx.Fail(w, apperr.Upstream("update invoice", err))
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Delete handles DELETE /api/invoices/{id}. Admin only, items included.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	inv, err := h.loadInvoice(id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	if err := authorize(h.Gate, r, gate.ActionDelete, policy.ResourceInvoice, inv); err != nil {
		httpx.Fail(w, err)
		return
	}
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Invoice{}, inv.ID).Error
	})
	if err != nil {
		httpx.Fail(w, apperr.Upstream("delete invoice", err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}
