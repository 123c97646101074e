// Package handlers contains the HTTP handlers for every portal resource.
// Handlers follow the same shape throughout: decode, validate, load the
// resource snapshot, authorize through the gate, then act. NotFound is
// returned when the id does not resolve and Forbidden when it does but the
// policy denies access; the two are never conflated.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dynexia/portal/internal/apperr"
	"github.com/dynexia/portal/internal/auth"
	"github.com/dynexia/portal/internal/gate"
	"github.com/dynexia/portal/internal/metrics"
)

// subject extracts the authenticated subject; handlers behind RequireAuth can
// rely on it but still guard against a missing identity.
func subject(r *http.Request) (gate.Subject, error) {
	s, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		return gate.Subject{}, apperr.Unauthorized()
	}
	return s, nil
}

// decodeJSON reads the request body into dst, limited to 1 MiB.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation(map[string]string{"body": "invalid_json"})
	}
	return nil
}

// idParam parses a numeric path parameter.
func idParam(r *http.Request, name string) (uint, error) {
	v := r.PathValue(name)
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation(map[string]string{name: "invalid_id"})
	}
	return uint(id), nil
}

// authorize runs the gate and translates its sentinels into the wire
// taxonomy, counting denials per resource type.
func authorize(g *gate.Gate[gate.Subject], r *http.Request, action gate.Action, resourceType string, resource any) error {
	s, err := subject(r)
	if err != nil {
		return err
	}
	if err := g.Authorize(r.Context(), s, action, resourceType, resource); err != nil {
		if errors.Is(err, gate.ErrUnauthenticated) {
			return apperr.Unauthorized()
		}
		metrics.IncrementAuthorizationDenied(resourceType)
		return apperr.Forbidden()
	}
	return nil
}
