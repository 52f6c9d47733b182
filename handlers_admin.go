package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// HandleUpsertPage seeds or updates a preview page. Reseeding an existing
// page key updates its template and reactivates it.
// POST /api/admin/pages
func (a *App) HandleUpsertPage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PageKey     string `json:"page_key"`
		TemplateRef string `json:"template_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if req.PageKey == "" || req.TemplateRef == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "page_key and template_ref are required")
		return
	}

	page, err := a.db.UpsertPage(req.PageKey, req.TemplateRef)
	if err != nil {
		a.log.Errorw("page upsert failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", ErrUnavailable.Error())
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"page_key":     page.Key,
		"template_ref": page.TemplateRef,
		"active":       page.Active,
	})
}

// HandleSetPageActive flips a page's active flag. Pages are never deleted.
// POST /api/admin/pages/{pageKey}/active
func (a *App) HandleSetPageActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	pageKey := mux.Vars(r)["pageKey"]
	if err := a.db.SetPageActive(pageKey, req.Active); err != nil {
		a.log.Errorw("page activation failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", ErrUnavailable.Error())
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"page_key": pageKey,
		"active":   req.Active,
	})
}

// HandleCreateCode seeds an access code for a page. The plaintext is hashed
// here and never stored; reseeding the same code is a no-op.
// POST /api/admin/codes
func (a *App) HandleCreateCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code      string `json:"code"`
		PageKey   string `json:"page_key"`
		ExpiresAt string `json:"expires_at,omitempty"` // RFC 3339
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if req.Code == "" || req.PageKey == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "code and page_key are required")
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "expires_at must be RFC 3339")
			return
		}
		expiresAt = &t
	}

	fingerprint := Fingerprint(req.Code, a.cfg.CodeSalt)
	if err := a.db.UpsertCode(fingerprint, req.PageKey, expiresAt); err != nil {
		a.log.Errorw("code upsert failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", ErrUnavailable.Error())
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"fingerprint": fingerprint,
		"page_key":    req.PageKey,
	})
}

// HandleSetCodeActive retires or restores an access code.
// POST /api/admin/codes/{fingerprint}/active
func (a *App) HandleSetCodeActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	fingerprint := mux.Vars(r)["fingerprint"]
	if err := a.db.SetCodeActive(fingerprint, req.Active); err != nil {
		a.log.Errorw("code activation failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", ErrUnavailable.Error())
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"fingerprint": fingerprint,
		"active":      req.Active,
	})
}
