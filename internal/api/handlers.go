package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/textry/internal/history"
	"github.com/foxzi/textry/internal/recipient"
	"github.com/foxzi/textry/internal/session"
	"github.com/foxzi/textry/internal/template"
)

// RecipientPayload is one inline recipient in a send request.
type RecipientPayload struct {
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Phone     string            `json:"phone"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// SendRequest is the request body for POST /send. Either Message or
// TemplateName must be set; a template implies personalization.
type SendRequest struct {
	Message      string             `json:"message,omitempty"`
	TemplateName string             `json:"template_name,omitempty"`
	Personalize  bool               `json:"personalize,omitempty"`
	Recipients   []RecipientPayload `json:"recipients"`
}

// SessionResponse is the response for GET /session
type SessionResponse struct {
	Running  bool            `json:"running"`
	Progress float64         `json:"progress"`
	Summary  session.Summary `json:"summary"`
	Tasks    []session.Task  `json:"tasks,omitempty"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Running bool   `json:"running"`
}

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
		Running: s.orchestrator.IsRunning(),
	})
}

// handleSend handles POST /api/v1/send. The session runs in the
// background; progress is observed by polling GET /session.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Recipients) == 0 {
		s.sendError(w, http.StatusBadRequest, "recipients is required")
		return
	}
	if req.Message == "" && req.TemplateName == "" {
		s.sendError(w, http.StatusBadRequest, "message or template_name is required")
		return
	}
	if s.orchestrator.IsRunning() {
		s.sendError(w, http.StatusConflict, "A session is already running")
		return
	}

	message := req.Message
	personalize := req.Personalize
	templateName := req.TemplateName
	if templateName != "" {
		tmpl, err := s.templates.GetByName(r.Context(), templateName)
		if err != nil {
			s.logger.Error("failed to load template", "name", templateName, "error", err)
			s.sendError(w, http.StatusInternalServerError, "Failed to load template")
			return
		}
		if tmpl == nil {
			s.sendError(w, http.StatusNotFound, "Template not found")
			return
		}
		message = tmpl.Content
		personalize = true
	}

	recipients := make([]recipient.Sendable, 0, len(req.Recipients))
	for _, p := range req.Recipients {
		recipients = append(recipients, recipient.New(p.FirstName, p.LastName, p.Phone, p.Fields))
	}

	s.orchestrator.SetRecorder(s.outcomeRecorder(templateName))

	go func() {
		ctx := context.Background()
		if personalize {
			s.orchestrator.StartPersonalized(ctx, recipients, message)
		} else {
			s.orchestrator.Start(ctx, recipients, message)
		}
	}()

	s.sendJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// handleCancel handles POST /api/v1/cancel
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.orchestrator.Cancel()
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleRetry handles POST /api/v1/retry
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		s.sendError(w, http.StatusBadRequest, "message is required")
		return
	}
	if s.orchestrator.IsRunning() {
		s.sendError(w, http.StatusConflict, "A session is already running")
		return
	}

	go s.orchestrator.RetryFailed(context.Background(), req.Message)

	s.sendJSON(w, http.StatusAccepted, map[string]string{"status": "retrying"})
}

// handleSession handles GET /api/v1/session
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	resp := SessionResponse{
		Running:  s.orchestrator.IsRunning(),
		Progress: s.orchestrator.Progress(),
		Summary:  s.orchestrator.Summary(),
	}
	if r.URL.Query().Get("tasks") == "true" {
		resp.Tasks = s.orchestrator.Snapshot()
	}
	s.sendJSON(w, http.StatusOK, resp)
}

// outcomeRecorder maps final task states to history entries.
func (s *Server) outcomeRecorder(templateName string) session.Recorder {
	return func(tasks []session.Task) {
		entries := make([]history.Entry, 0, len(tasks))
		for _, t := range tasks {
			var status history.Status
			switch {
			case t.Status == session.StatusSent:
				status = history.StatusSent
			case t.Status == session.StatusFailed && t.FailureReason == session.CancelledReason:
				status = history.StatusCancelled
			case t.Status == session.StatusFailed:
				status = history.StatusFailed
			default:
				continue // never ran
			}
			entries = append(entries, history.Entry{
				RecipientName: t.Recipient.Name,
				Phone:         t.Recipient.Phone,
				Status:        status,
				TemplateName:  templateName,
				Metadata:      map[string]string{"failure_reason": t.FailureReason},
			})
		}
		if err := s.history.Append(entries...); err != nil {
			s.logger.Error("failed to append history", "error", err)
		}
	}
}

// handleHistory handles GET /api/v1/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	f := history.Filter{
		Status: history.Status(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("search"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		f.Limit, _ = strconv.Atoi(limit)
	}

	entries := s.history.List(f)
	if entries == nil {
		entries = []history.Entry{}
	}
	s.sendJSON(w, http.StatusOK, entries)
}

// handleHistoryExport handles GET /api/v1/history/export
func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="history.csv"`)
	if err := history.ExportCSV(w, s.history.Load()); err != nil {
		s.logger.Error("failed to export history", "error", err)
	}
}

// TemplateRequest is the request body for template create/update.
type TemplateRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// TemplateResponse is a template plus its derived variables.
type TemplateResponse struct {
	*template.Template
	Variables []string `json:"variables"`
}

func templateResponse(t *template.Template) TemplateResponse {
	vars := t.Variables()
	if vars == nil {
		vars = []string{}
	}
	return TemplateResponse{Template: t, Variables: vars}
}

// handleListTemplates handles GET /api/v1/templates
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.templates.List(r.Context(), template.ListFilter{
		Search: r.URL.Query().Get("search"),
	})
	if err != nil {
		s.logger.Error("failed to list templates", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}

	resp := make([]TemplateResponse, 0, len(templates))
	for _, t := range templates {
		resp = append(resp, templateResponse(t))
	}
	s.sendJSON(w, http.StatusOK, resp)
}

// handleCreateTemplate handles POST /api/v1/templates
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		s.sendError(w, http.StatusBadRequest, "name is required")
		return
	}

	tmpl := &template.Template{Name: req.Name, Content: req.Content}
	if err := s.templates.Create(r.Context(), tmpl); err != nil {
		s.sendError(w, http.StatusConflict, err.Error())
		return
	}

	s.sendJSON(w, http.StatusCreated, templateResponse(tmpl))
}

// handleGetTemplate handles GET /api/v1/templates/{id}
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.logger.Error("failed to get template", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to get template")
		return
	}
	if tmpl == nil {
		s.sendError(w, http.StatusNotFound, "Template not found")
		return
	}
	s.sendJSON(w, http.StatusOK, templateResponse(tmpl))
}

// handleUpdateTemplate handles PUT /api/v1/templates/{id}
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		s.sendError(w, http.StatusBadRequest, "name is required")
		return
	}

	tmpl := &template.Template{
		ID:      chi.URLParam(r, "id"),
		Name:    req.Name,
		Content: req.Content,
	}
	if err := s.templates.Update(r.Context(), tmpl); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.sendJSON(w, http.StatusOK, templateResponse(tmpl))
}

// handleDeleteTemplate handles DELETE /api/v1/templates/{id}.
// Deleting the currently selected template clears the selection.
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.templates.Delete(r.Context(), id); err != nil {
		s.logger.Error("failed to delete template", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to delete template")
		return
	}

	s.selMu.Lock()
	if s.selectedTemplate == id {
		s.selectedTemplate = ""
	}
	s.selMu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// handleSelectTemplate handles POST /api/v1/templates/{id}/select
func (s *Server) handleSelectTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tmpl, err := s.templates.Get(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get template", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to get template")
		return
	}
	if tmpl == nil {
		s.sendError(w, http.StatusNotFound, "Template not found")
		return
	}

	s.selMu.Lock()
	s.selectedTemplate = id
	s.selMu.Unlock()

	s.sendJSON(w, http.StatusOK, map[string]string{"selected": id})
}

// sendJSON writes a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendError writes a JSON error response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}
