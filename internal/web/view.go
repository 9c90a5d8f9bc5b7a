package web

import (
	"time"

	"deskbook/internal/booking"
	"deskbook/internal/calendar"
	"deskbook/internal/models"
)

type cell struct {
	DeskID    string
	Date      string
	Label     string
	Available bool
}

type row struct {
	Day   calendar.WeekDate
	Cells []cell
}

type dialog struct {
	Open         bool
	Booking      bool
	DeskName     string
	Date         string
	Weekday      string
	EmployeeName string
	BookedBy     string
	Notice       string
	Pending      bool
}

type pageView struct {
	Rows        []row
	Dialog      dialog
	Flash       string
	Stale       bool
	StaleReason string
	RefreshedAt time.Time
	Empty       bool
}

// buildPage lays desks out as one row per date, one button per desk.
func buildPage(desks []models.Desk, dates []calendar.WeekDate, sel booking.Selection) pageView {
	view := pageView{
		Rows:  make([]row, 0, len(dates)),
		Flash: sel.Flash,
		Empty: len(desks) == 0,
	}

	for _, day := range dates {
		r := row{Day: day, Cells: make([]cell, 0, len(desks))}
		for _, d := range desks {
			r.Cells = append(r.Cells, cell{
				DeskID:    d.ID.String(),
				Date:      day.Date,
				Label:     d.Label(day.Date),
				Available: d.BookingFor(day.Date).IsAvailable,
			})
		}
		view.Rows = append(view.Rows, r)
	}

	if !sel.Idle() {
		view.Dialog = dialog{
			Open:         true,
			Booking:      sel.Modal == booking.ModalBooking,
			DeskName:     sel.Desk.Name,
			Date:         sel.Date,
			EmployeeName: sel.EmployeeName,
			BookedBy:     sel.Desk.BookingFor(sel.Date).EmployeeName,
			Notice:       sel.Notice,
			Pending:      sel.Pending,
		}
		for _, day := range dates {
			if day.Date == sel.Date {
				view.Dialog.Weekday = day.Weekday
			}
		}
	}
	return view
}
