package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"thongke/internal/core"
	applog "thongke/internal/log"
	"thongke/internal/report"
	"thongke/internal/services"
)

const (
	msgInvalidDate   = "Ngày không hợp lệ, định dạng YYYY-MM-DD"
	msgInvalidStatus = "Trạng thái hồ sơ không hợp lệ"
	msgLoadFailed    = "Không thể tải dữ liệu thống kê"
	msgExportFailed  = "Không thể xuất báo cáo"
)

// filterMessage maps filter parse errors to user-facing text.
func filterMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidStatus):
		return msgInvalidStatus
	default:
		return msgInvalidDate
	}
}

// parseFilter reads the filter query of r. The returned error is always a
// client error.
func (s *Server) parseFilter(r *http.Request) (FilterParams, core.Filter, error) {
	p := ParseFilterParams(r.URL.Query())
	f, err := s.reports.ParseFilter(p.Start, p.End, p.Status)
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Invalid filter",
			applog.NewFields().
				WithFilter(p.Start, p.End, p.Status).
				WithError(err).
				WithOperation(applog.OpParse).ToSlice()...)
		return p, core.Filter{}, err
	}
	return p, f, nil
}

func (s *Server) loadStats(ctx context.Context, f core.Filter) (services.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	snap, err := s.reports.Stats(ctx, f)
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Stats load failed", err,
			applog.OpAggregate, errorType(err), applog.NewFields().WithComponent(applog.ComponentReport))
	}
	return snap, err
}

func errorType(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return applog.ErrorTypeTimeout
	}
	return applog.ErrorTypeInternal
}

// handleIndex renders the dashboard page for the filter in the query.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Không tìm thấy trang").Write(w)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	p, f, err := s.parseFilter(r)
	page := PageView{
		Title:    "Thống kê & Báo cáo tổng hợp",
		Params:   p,
		Statuses: StatusOptions(p.Status),
	}
	if err != nil {
		status = http.StatusBadRequest
		page.Error = filterMessage(err)
		f = core.Filter{Status: core.StatusAll}
	}

	snap, err := s.loadStats(r.Context(), f)
	if err != nil {
		status = http.StatusInternalServerError
		page.Error = msgLoadFailed
	}
	page.Stats = BuildStatsView(snap, s.reports.Formatter(), s.reports.Location(), p)

	s.render(w, r, status, "index.html", page)
}

// handleStatsPartial renders the cards and table for HTMX swaps.
func (s *Server) handleStatsPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	p, f, err := s.parseFilter(r)
	if err != nil {
		BadRequestError(filterMessage(err)).TriggerErrorNotification(filterMessage(err)).Write(w)
		return
	}
	snap, err := s.loadStats(r.Context(), f)
	if err != nil {
		ErrorResponse(http.StatusInternalServerError,
			msgLoadFailed).TriggerErrorNotification(msgLoadFailed).Write(w)
		return
	}
	if s.templates == nil {
		InternalServerError("templates not loaded").Write(w)
		return
	}

	view := BuildStatsView(snap, s.reports.Formatter(), s.reports.Location(), p)
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "stats.html", view); err != nil {
		s.renderFailed(r, "stats.html", err)
		InternalServerError("Lỗi hiển thị thống kê").Write(w)
		return
	}
	NewHTMXResponse().
		TriggerStatsRefreshed(p).
		BodyHTML(buf.String()).
		Write(w)
}

// handleAPIStats returns the aggregates as JSON.
func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	_, f, err := s.parseFilter(r)
	if err != nil {
		JSONError(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	snap, err := s.loadStats(r.Context(), f)
	if err != nil {
		JSONError(http.StatusInternalServerError, "failed to load stats").Write(w)
		return
	}
	NewHTMXResponse().BodyJSON(newStatsResponse(snap)).Write(w)
}

// handleExport serves the CSV report as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	_, f, err := s.parseFilter(r)
	if err != nil {
		BadRequestError(filterMessage(err)).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	exp, err := s.reports.Export(ctx, f, ExportSource)
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Report export failed", err,
			applog.OpExport, errorType(err), applog.NewFields().WithComponent(applog.ComponentReport))
		InternalServerError(msgExportFailed).Write(w)
		return
	}

	h := w.Header()
	h.Set("Content-Type", report.ContentType)
	h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exp.Filename))
	h.Set("Content-Length", strconv.Itoa(len(exp.CSV)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(exp.CSV)
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).LogReportExported(ctx,
		exp.Filename, ExportSource, exp.Stats.Records(), exp.Stats.BenefitsTotal().Dong)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().BodyJSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	checks["record_source"] = "ok"
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["record_source"] = "failed: " + err.Error()
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		}
	}

	NewHTMXResponse().Status(httpStatus).BodyJSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.renderFailed(r, name, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderFailed(r *http.Request, name string, err error) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(),
		"Template execution failed", applog.FieldError, err, "template", name, applog.FieldOperation, applog.OpRender)
}
