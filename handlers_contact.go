package main

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
)

// readContactPayload accepts both the JSON and the form-encoded shapes the
// site frontends send.
func readContactPayload(r *http.Request) *ContactMessage {
	values := map[string]string{}

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var raw map[string]string
		if err := json.NewDecoder(r.Body).Decode(&raw); err == nil {
			values = raw
		}
	} else {
		if err := r.ParseForm(); err == nil {
			for k := range r.PostForm {
				values[k] = r.PostForm.Get(k)
			}
		}
	}

	page := strings.TrimSpace(values["page"])
	if page == "" {
		page = r.Header.Get("Referer")
	}

	return &ContactMessage{
		Name:    strings.TrimSpace(values["name"]),
		Email:   strings.TrimSpace(values["email"]),
		Message: strings.TrimSpace(values["message"]),
		Company: strings.TrimSpace(values["company"]),
		Phone:   strings.TrimSpace(values["phone"]),
		Service: strings.TrimSpace(values["service"]),
		Page:    page,
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// HandleContact persists a contact-form submission and relays the admin
// notification and the acknowledgment mail.
// POST /api/contact
func (a *App) HandleContact(w http.ResponseWriter, r *http.Request) {
	msg := readContactPayload(r)

	if msg.Name == "" || msg.Email == "" || msg.Message == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Name, email and message are required")
		return
	}

	if _, err := a.db.CreateContactMessage(msg); err != nil {
		a.log.Errorw("contact insert failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", ErrUnavailable.Error())
		return
	}

	adminEmail := a.cfg.MailTo
	if adminEmail == "" {
		adminEmail = a.cfg.MailFrom
	}
	if adminEmail == "" {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Admin email is not configured")
		return
	}

	// Escape everything user-supplied before it lands in an HTML mail body.
	sName := html.EscapeString(msg.Name)
	sEmail := html.EscapeString(msg.Email)
	sMsg := html.EscapeString(msg.Message)
	sCompany := html.EscapeString(msg.Company)
	sPhone := html.EscapeString(msg.Phone)
	sService := html.EscapeString(msg.Service)
	sPage := html.EscapeString(msg.Page)

	adminText := fmt.Sprintf(
		"New contact request\nName: %s\nEmail: %s\nCompany: %s\nPhone: %s\nService: %s\nSource: %s\n\nMessage:\n%s\n",
		msg.Name, msg.Email, msg.Company, msg.Phone, msg.Service, msg.Page, msg.Message)

	adminHTML := fmt.Sprintf(`
	<h2>New contact request – CyberCare</h2>
	<p><strong>Name:</strong> %s</p>
	<p><strong>Email:</strong> %s</p>
	<p><strong>Company:</strong> %s</p>
	<p><strong>Phone:</strong> %s</p>
	<p><strong>Service:</strong> %s</p>
	<p><strong>Source page:</strong> %s</p>
	<p><strong>Message:</strong></p>
	<div style="padding:12px;background:#f4f4f4;border-radius:8px;white-space:pre-wrap">%s</div>`,
		sName, sEmail, orDash(sCompany), orDash(sPhone), orDash(sService), orDash(sPage), sMsg)

	userHTML := fmt.Sprintf(`
	<p>Dear %s,</p>
	<p>Thank you for contacting us. We have received your message and will reply shortly.</p>
	<p style="margin-top:16px;">Best regards,<br><strong>CyberCare</strong></p>`, sName)

	ctx := r.Context()
	if err := a.mailer.Send(ctx, adminEmail, "New contact request – CyberCare", adminHTML, adminText); err != nil {
		a.log.Errorw("admin mail failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Failed to send email")
		return
	}
	if err := a.mailer.Send(ctx, msg.Email, "Thank you for your inquiry – CyberCare", userHTML,
		"Thank you for contacting us. We will reply shortly."); err != nil {
		a.log.Errorw("acknowledgment mail failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Failed to send email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"success": true,
		"message": "Thank you! We have received your message and will reply shortly.",
	})
}
