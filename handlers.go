package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

const grantCookie = "preview_grant"

// HandleSubmitCode validates a preview access code.
// POST /api/preview/submit
func (a *App) HandleSubmitCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	pageKey, token, err := a.gate.SubmitCode(req.Code, clientAddress(r))
	if err != nil {
		writeGateError(w, err)
		return
	}

	// The grant travels both ways: as a cookie for browser navigation and in
	// the body for API clients that send it as a bearer token.
	http.SetCookie(w, &http.Cookie{
		Name:     grantCookie,
		Value:    token,
		Path:     "/preview/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.cfg.IsProduction(),
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"page_key": pageKey,
		"redirect": "/preview/" + pageKey,
		"token":    token,
	})
}

// grantToken extracts the session grant from the Authorization header or the
// grant cookie.
func grantToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if c, err := r.Cookie(grantCookie); err == nil {
		return c.Value
	}
	return ""
}

// HandlePreviewPage serves a granted preview page.
// GET /preview/{pageKey}
func (a *App) HandlePreviewPage(w http.ResponseWriter, r *http.Request) {
	pageKey := mux.Vars(r)["pageKey"]

	token := grantToken(r)
	if token == "" {
		writeGateError(w, ErrForbidden)
		return
	}
	claims, err := a.gate.VerifyGrant(token)
	if err != nil {
		writeGateError(w, err)
		return
	}

	templateRef, err := a.gate.FetchPage(pageKey, claims)
	if err != nil {
		writeGateError(w, err)
		return
	}

	body, err := a.renderer.Render(templateRef)
	if err != nil {
		a.log.Errorw("render failed", "template", templateRef, "error", err)
		writeGateError(w, ErrUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}

// HandlePage renders a public marketing page.
func (a *App) HandlePage(templateRef string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := a.renderer.Render(templateRef)
		if err != nil {
			a.log.Errorw("render failed", "template", templateRef, "error", err)
			writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", ErrUnavailable.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)
	}
}
