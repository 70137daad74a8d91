package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tipline/internal/auth"
	"tipline/internal/errors"
	"tipline/internal/form"
	"tipline/internal/record"
	"tipline/internal/version"
)

// reportJSON is the wire shape of a report
type reportJSON struct {
	PublicId      string `json:"publicId"`
	LocationId    int64  `json:"locationId"`
	TargetId      *int64 `json:"targetId,omitempty"`
	ReporterName  string `json:"reporterName,omitempty"`
	ReporterEmail string `json:"reporterEmail,omitempty"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	Status        string `json:"status"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

func toReportJSON(r *record.Report) reportJSON {
	return reportJSON{
		PublicId:      r.PublicId,
		LocationId:    r.LocationId,
		TargetId:      r.TargetId,
		ReporterName:  r.ReporterName,
		ReporterEmail: r.ReporterEmail,
		Subject:       r.Subject,
		Body:          r.Body,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// handleHealth reports liveness including a database ping
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}

	status := "ok"
	code := http.StatusOK
	if err := s.store.DB().Ping(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	WriteJSON(w, map[string]any{
		"status":  status,
		"version": version.Version,
	}, code)
}

// handleReports dispatches GET (list) and POST (submit) on /api/v1/reports
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listReports(w, r)
	case http.MethodPost:
		s.createReport(w, r)
	default:
		MethodNotAllowed(w)
	}
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	f := form.New(r.URL.Query(), s.catalog)
	f.In("status", record.StatusOpen, record.StatusReviewing, record.StatusClosed)
	f.Int("location_id")
	f.Int("limit")
	if !f.Valid() {
		WriteError(w, errors.New(errors.ValidationFailed, "invalid query parameters").WithDetails(f.Errors))
		return
	}

	limit := int(f.GetInt("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	reports, err := s.store.ListReports(record.ReportFilter{
		Status:     f.Get("status"),
		LocationId: f.GetInt("location_id"),
		Limit:      limit,
	})
	if err != nil {
		s.logger.Error("Failed to list reports", map[string]any{"error": err.Error()})
		InternalError(w, "failed to list reports")
		return
	}

	out := make([]reportJSON, 0, len(reports))
	for _, rep := range reports {
		out = append(out, toReportJSON(rep))
	}
	WriteJSON(w, map[string]any{"reports": out}, http.StatusOK)
}

func (s *Server) createReport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequest(w, "failed to parse form")
		return
	}

	f := form.New(r.PostForm, s.catalog)
	f.Required("location_id", "subject", "body")
	f.Int("location_id")
	f.Int("target_id")
	f.Email("reporter_email")
	f.MaxLen("reporter_name", 100)
	f.MaxLen("subject", 200)
	f.MaxLen("body", 10000)
	if !f.Valid() {
		WriteError(w, errors.New(errors.ValidationFailed, "invalid report").WithDetails(f.Errors))
		return
	}

	var loc record.Location
	if err := s.store.Find(&loc, f.GetInt("location_id")); err != nil {
		if errors.CodeOf(err) == errors.NotFound {
			BadRequest(w, "unknown location")
			return
		}
		InternalError(w, "failed to load location")
		return
	}

	var targetId *int64
	if f.Has("target_id") {
		var tgt record.Target
		if err := s.store.Find(&tgt, f.GetInt("target_id")); err != nil {
			if errors.CodeOf(err) == errors.NotFound {
				BadRequest(w, "unknown target")
				return
			}
			InternalError(w, "failed to load target")
			return
		}
		if tgt.LocationId != loc.Id {
			BadRequest(w, "target does not belong to location")
			return
		}
		targetId = &tgt.Id
	}

	now := time.Now().UTC()
	rep := &record.Report{
		PublicId:      uuid.New().String(),
		LocationId:    loc.Id,
		TargetId:      targetId,
		ReporterName:  f.Get("reporter_name"),
		ReporterEmail: f.Get("reporter_email"),
		Subject:       f.Get("subject"),
		Body:          f.Get("body"),
		Status:        record.StatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Insert(rep); err != nil {
		s.logger.Error("Failed to insert report", map[string]any{"error": err.Error()})
		InternalError(w, "failed to save report")
		return
	}

	s.logger.Info("Report submitted", map[string]any{
		"publicId":   rep.PublicId,
		"locationId": rep.LocationId,
	})
	WriteJSON(w, map[string]any{"report": toReportJSON(rep)}, http.StatusCreated)
}

// handleReportRoutes dispatches /api/v1/reports/:publicID[/status]
func (s *Server) handleReportRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/reports/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		if r.Method != http.MethodGet {
			MethodNotAllowed(w)
			return
		}
		s.getReport(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "status":
		if r.Method != http.MethodPatch {
			MethodNotAllowed(w)
			return
		}
		s.updateReportStatus(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request, publicID string) {
	rep, err := s.store.FindReportByPublicID(publicID)
	if err != nil {
		if errors.CodeOf(err) == errors.NotFound {
			NotFound(w, s.catalog.Get("report.not_found"))
			return
		}
		InternalError(w, "failed to load report")
		return
	}
	WriteJSON(w, map[string]any{"report": toReportJSON(rep)}, http.StatusOK)
}

func (s *Server) updateReportStatus(w http.ResponseWriter, r *http.Request, publicID string) {
	if _, err := s.bearerUser(r); err != nil {
		Unauthorized(w, "authentication required")
		return
	}

	if err := r.ParseForm(); err != nil {
		BadRequest(w, "failed to parse form")
		return
	}

	f := form.New(r.PostForm, s.catalog)
	f.Required("status")
	f.In("status", record.StatusOpen, record.StatusReviewing, record.StatusClosed)
	if !f.Valid() {
		WriteError(w, errors.New(errors.ValidationFailed, "invalid status").WithDetails(f.Errors))
		return
	}

	rep, err := s.store.FindReportByPublicID(publicID)
	if err != nil {
		if errors.CodeOf(err) == errors.NotFound {
			NotFound(w, s.catalog.Get("report.not_found"))
			return
		}
		InternalError(w, "failed to load report")
		return
	}

	next := f.Get("status")
	if !record.ValidTransition(rep.Status, next) {
		WriteError(w, errors.New(errors.InvalidTransition, s.catalog.Get("report.bad_transition")).
			WithDetails(map[string]string{"from": rep.Status, "to": next}))
		return
	}

	rep.Status = next
	rep.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(rep); err != nil {
		InternalError(w, "failed to update report")
		return
	}

	WriteJSON(w, map[string]any{"report": toReportJSON(rep)}, http.StatusOK)
}

// handleLocations lists reference locations through the result cache
func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}

	locations, err := s.store.ListLocations(s.cacheTTL)
	if err != nil {
		InternalError(w, "failed to list locations")
		return
	}

	type locJSON struct {
		Id     int64  `json:"id"`
		Name   string `json:"name"`
		Region string `json:"region,omitempty"`
	}
	out := make([]locJSON, 0, len(locations))
	for _, l := range locations {
		out = append(out, locJSON{Id: l.Id, Name: l.Name, Region: l.Region})
	}
	WriteJSON(w, map[string]any{"locations": out}, http.StatusOK)
}

// handleTargets lists active targets for a location through the result cache
func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}

	f := form.New(r.URL.Query(), s.catalog)
	f.Required("location").Int("location")
	if !f.Valid() {
		WriteError(w, errors.New(errors.ValidationFailed, "invalid query parameters").WithDetails(f.Errors))
		return
	}

	targets, err := s.store.ListTargets(f.GetInt("location"), s.cacheTTL)
	if err != nil {
		InternalError(w, "failed to list targets")
		return
	}

	type tgtJSON struct {
		Id       int64  `json:"id"`
		Name     string `json:"name"`
		Category string `json:"category,omitempty"`
	}
	out := make([]tgtJSON, 0, len(targets))
	for _, t := range targets {
		out = append(out, tgtJSON{Id: t.Id, Name: t.Name, Category: t.Category})
	}
	WriteJSON(w, map[string]any{"targets": out}, http.StatusOK)
}

// handleLogin exchanges email/password for a session token
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequest(w, "failed to parse form")
		return
	}

	f := form.New(r.PostForm, s.catalog)
	f.Required("email", "password").Email("email")
	if !f.Valid() {
		WriteError(w, errors.New(errors.ValidationFailed, "invalid credentials").WithDetails(f.Errors))
		return
	}

	user, err := s.authMgr.Authenticate(f.Get("email"), f.Get("password"))
	if err != nil {
		if err == auth.ErrInvalidCredentials {
			Unauthorized(w, s.catalog.Get("auth.invalid_credentials"))
			return
		}
		InternalError(w, "authentication failed")
		return
	}

	token, err := s.authMgr.IssueToken(user)
	if err != nil {
		InternalError(w, "failed to issue token")
		return
	}

	WriteJSON(w, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":    user.Id,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
	}, http.StatusOK)
}

// handleLogout revokes the presented session token
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w)
		return
	}

	raw := bearerToken(r)
	if raw == "" {
		Unauthorized(w, "authentication required")
		return
	}
	if err := s.authMgr.RevokeToken(raw); err != nil {
		Unauthorized(w, "invalid token")
		return
	}
	WriteJSON(w, map[string]any{"revoked": true}, http.StatusOK)
}

// handleDebugQueries renders the query console as HTML
func (s *Server) handleDebugQueries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.profiler.RenderHTML(w); err != nil {
		s.logger.Error("Failed to render console", map[string]any{"error": err.Error()})
	}
}

// handleDebugQueriesJSON returns the query console snapshot as JSON
func (s *Server) handleDebugQueriesJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}
	entries, summary := s.profiler.Snapshot()
	WriteJSON(w, map[string]any{
		"queries": entries,
		"summary": summary,
	}, http.StatusOK)
}

// bearerToken extracts the Bearer token from the Authorization header
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// bearerUser resolves the request's Bearer token to a user
func (s *Server) bearerUser(r *http.Request) (*record.User, error) {
	raw := bearerToken(r)
	if raw == "" {
		return nil, auth.ErrTokenNotFound
	}
	return s.authMgr.VerifyToken(raw)
}
