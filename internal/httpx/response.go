package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/dynexia/portal/internal/apperr"
)

// Envelope is the wire shape for every response: {success, data|error}.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Count      *int        `json:"count,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      string      `json:"error,omitempty"`
	Details    any         `json:"details,omitempty"`
}

// Pagination carries next/prev page hints on list responses.
type Pagination struct {
	Next *Page `json:"next,omitempty"`
	Prev *Page `json:"prev,omitempty"`
}

type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	body, err := json.Marshal(env)
	if err != nil {
		// best-effort error response; avoid writing partial JSON
		http.Error(w, `{"success":false,"error":"encode_error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

// JSON writes a success envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Success: true, Data: data})
}

// JSONList writes a success envelope with count and pagination metadata.
func JSONList(w http.ResponseWriter, status int, data any, count int, p *Pagination) {
	write(w, status, Envelope{Success: true, Data: data, Count: &count, Pagination: p})
}

// JSONError writes a failure envelope.
func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	write(w, status, Envelope{Success: false, Error: msg, Details: details})
}

// Fail maps an error to the wire: apperr kinds keep their status and code,
// anything else becomes an opaque 500.
func Fail(w http.ResponseWriter, err error) {
	if e, ok := apperr.As(err); ok {
		var details any
		if len(e.Details) > 0 {
			details = e.Details
		}
		JSONError(w, e.Status(), e.Code(), details)
		return
	}
	JSONError(w, http.StatusInternalServerError, "internal_error", nil)
}
