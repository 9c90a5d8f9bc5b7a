package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"deskbook/internal/booking"
	"deskbook/internal/calendar"
	"deskbook/internal/deskapi"
	"deskbook/internal/export"
	"deskbook/internal/metrics"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleIndex reloads the directory and renders the grid with the session's dialog.
// GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("index")
	sess := sessionFrom(r)

	// A failed refresh keeps the previous desks; the banner reports it.
	_ = s.workflow.Refresh(r.Context())

	sel := sess.Selection()
	view := buildPage(s.directory.Desks(), calendar.WorkWeeks(s.clock.Now()), sel)
	if err := s.directory.LastError(); err != nil {
		view.Stale = true
		view.StaleReason = deskapi.UserMessage(err)
		view.RefreshedAt = s.directory.RefreshedAt()
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("render page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if sel.Flash != "" {
		_, _ = sess.Dispatch(booking.AckFlash{})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// handleSelect opens the dialog for a grid cell.
// POST /select
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("select")

	deskID := r.PostFormValue("desk")
	date := r.PostFormValue("date")
	if deskID == "" || date == "" {
		http.Error(w, "desk and date are required", http.StatusBadRequest)
		return
	}
	if !calendar.Contains(calendar.WorkWeeks(s.clock.Now()), date) {
		http.Error(w, "date is outside the shown weeks", http.StatusBadRequest)
		return
	}

	err := s.workflow.Select(sessionFrom(r), deskID, date)
	switch {
	case errors.Is(err, booking.ErrInvalidDate):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, booking.ErrUnknownDesk):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.seeOther(w, r, err)
}

// handleConfirmBooking books the selected desk for the submitted name.
// POST /booking/confirm
func (s *Server) handleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("confirm_booking")
	err := s.workflow.ConfirmBooking(r.Context(), sessionFrom(r), r.PostFormValue("employee_name"))
	s.seeOther(w, r, err)
}

// handleConfirmCancel cancels the selected booking.
// POST /cancellation/confirm
func (s *Server) handleConfirmCancel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("confirm_cancel")
	err := s.workflow.ConfirmCancel(r.Context(), sessionFrom(r))
	s.seeOther(w, r, err)
}

// handleDismiss closes the open dialog.
// POST /dismiss
func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("dismiss")
	err := s.workflow.Dismiss(sessionFrom(r))
	s.seeOther(w, r, err)
}

// handleExport streams the current grid as a workbook.
// GET /export.xlsx
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")

	dates := calendar.WorkWeeks(s.clock.Now())
	var buf bytes.Buffer
	if err := export.WriteGrid(&buf, s.directory.Desks(), dates); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("export grid")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "desks-"+dates[0].Date+".xlsx"))
	_, _ = buf.WriteTo(w)
}

// seeOther redirects back to the grid. Outcomes the session already shows (notices,
// ignored clicks, stale results) are logged only.
func (s *Server) seeOther(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		var apiErr *deskapi.Error
		switch {
		case errors.As(err, &apiErr):
			// Logged by the workflow and shown as the dialog notice.
		case errors.Is(err, booking.ErrEmptyName),
			errors.Is(err, booking.ErrModalOpen),
			errors.Is(err, booking.ErrNoModal),
			errors.Is(err, booking.ErrPending):
			hlog.FromRequest(r).Debug().Err(err).Msg("Action ignored")
		default:
			hlog.FromRequest(r).Error().Err(err).Msg("Action failed")
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
