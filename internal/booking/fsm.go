// Package booking implements the desk selection and modal workflow as a pure reducer.
package booking

import (
	"errors"
	"fmt"
	"strings"

	"deskbook/internal/models"
)

// Modal is the dialog currently shown over the grid.
type Modal string

const (
	ModalNone    Modal = "none"
	ModalBooking Modal = "booking"
	ModalCancel  Modal = "cancel"
)

// NoticeEmptyName is shown when a booking is confirmed without a name.
const NoticeEmptyName = "Please enter your name."

var (
	// ErrEmptyName is the validation failure for a blank employee name.
	ErrEmptyName = errors.New("employee name is required")
	// ErrModalOpen rejects grid clicks while a dialog is open.
	ErrModalOpen = errors.New("a dialog is already open")
	// ErrNoModal rejects dialog actions while no dialog is open.
	ErrNoModal = errors.New("no dialog is open")
	// ErrPending rejects actions while the dialog's request is in flight.
	ErrPending = errors.New("request already in progress")
	// ErrStaleResult marks a gateway result that no longer matches the open dialog.
	ErrStaleResult = errors.New("stale result")
	// ErrInvalidSelection rejects clicks without a desk or date.
	ErrInvalidSelection = errors.New("desk and date are required")
	// ErrInvalidTransition is returned when the transition table has no row for the
	// current mode and action.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrUnknownAction is returned for an Action type Reduce does not handle.
	ErrUnknownAction = errors.New("unknown action")
)

// Selection is the immutable view state of one browser session.
// Modal != ModalNone implies Desk and Date are set.
type Selection struct {
	Desk         models.Desk
	Date         string
	Modal        Modal
	EmployeeName string
	// Notice is the message shown inside the open dialog.
	Notice string
	// Flash is the message shown above the grid after a dialog completes.
	Flash   string
	Pending bool
	// Generation changes whenever a dialog opens or closes; results carrying an older
	// generation are ignored.
	Generation uint64
}

// Idle reports whether no dialog is open.
func (s Selection) Idle() bool { return s.Modal == "" || s.Modal == ModalNone }

func (s Selection) modal() Modal {
	if s.Modal == "" {
		return ModalNone
	}
	return s.Modal
}

// Action is an input to Reduce.
type Action interface{ action() }

// Click selects a grid cell.
type Click struct {
	Desk models.Desk
	Date string
}

// InputName replaces the booking dialog's name field.
type InputName struct{ Name string }

// Confirm submits the open dialog. A non-empty Modal must match the open dialog.
type Confirm struct{ Modal Modal }

// Dismiss closes the open dialog without side effects.
type Dismiss struct{}

// AckFlash clears the message shown above the grid.
type AckFlash struct{}

// Succeeded reports that the request issued for Generation completed.
type Succeeded struct{ Generation uint64 }

// Failed reports that the request issued for Generation failed.
type Failed struct {
	Generation uint64
	Err        error
	Message    string
}

func (Click) action()     {}
func (InputName) action() {}
func (Confirm) action()   {}
func (Dismiss) action()   {}
func (AckFlash) action()  {}
func (Succeeded) action() {}
func (Failed) action()    {}

// Effect is work Reduce asks the caller to perform. A nil Effect means none.
type Effect interface{ effect() }

// BookEffect asks for POST /desks/book.
type BookEffect struct {
	DeskID       models.DeskID
	EmployeeName string
	Date         string
	Generation   uint64
}

// CancelEffect asks for DELETE /desks/{id}.
type CancelEffect struct {
	DeskID     models.DeskID
	Date       string
	Generation uint64
}

// RefreshEffect asks for the desk directory to be reloaded.
type RefreshEffect struct{}

func (BookEffect) effect()    {}
func (CancelEffect) effect()  {}
func (RefreshEffect) effect() {}

// FSM holds the allowed dialog transitions.
type FSM struct {
	transitions map[Modal][]Modal
}

// NewFSM creates a new FSM with predefined transitions.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[Modal][]Modal{
			ModalNone:    {ModalBooking, ModalCancel},
			ModalBooking: {ModalNone},
			ModalCancel:  {ModalNone},
		},
	}
}

// CanTransition checks if transition is allowed.
func (f *FSM) CanTransition(from, to Modal) bool {
	allowed, ok := f.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

var fsm = NewFSM()

// Reduce applies a to s. It never mutates s and performs no I/O. On error the returned
// Selection is still the one to keep (it may carry a Notice).
func Reduce(s Selection, a Action) (Selection, Effect, error) {
	switch a := a.(type) {
	case Click:
		return reduceClick(s, a)

	case InputName:
		if s.modal() != ModalBooking {
			return s, nil, ErrNoModal
		}
		if s.Pending {
			return s, nil, ErrPending
		}
		s.EmployeeName = a.Name
		s.Notice = ""
		return s, nil, nil

	case Confirm:
		if a.Modal != "" && a.Modal != s.modal() {
			return s, nil, ErrNoModal
		}
		return reduceConfirm(s)

	case AckFlash:
		s.Flash = ""
		return s, nil, nil

	case Dismiss:
		if s.Idle() {
			s.Flash = ""
			return s, nil, nil
		}
		if !fsm.CanTransition(s.modal(), ModalNone) {
			return s, nil, ErrInvalidTransition
		}
		return Selection{Modal: ModalNone, Generation: s.Generation + 1}, nil, nil

	case Succeeded:
		if !s.Pending || s.Generation != a.Generation {
			return s, nil, ErrStaleResult
		}
		flash := fmt.Sprintf("Cancelled the booking of %s on %s.", s.Desk.Name, s.Date)
		if s.modal() == ModalBooking {
			flash = fmt.Sprintf("%s is booked for %s on %s.", s.Desk.Name, strings.TrimSpace(s.EmployeeName), s.Date)
		}
		return Selection{Modal: ModalNone, Generation: s.Generation + 1, Flash: flash}, RefreshEffect{}, nil

	case Failed:
		if !s.Pending || s.Generation != a.Generation {
			return s, nil, ErrStaleResult
		}
		s.Pending = false
		s.Notice = a.Message
		if s.Notice == "" && a.Err != nil {
			s.Notice = a.Err.Error()
		}
		return s, nil, nil
	}

	return s, nil, fmt.Errorf("%w: %T", ErrUnknownAction, a)
}

func reduceClick(s Selection, a Click) (Selection, Effect, error) {
	if !s.Idle() {
		return s, nil, ErrModalOpen
	}
	if a.Desk.ID.IsZero() || a.Date == "" {
		return s, nil, ErrInvalidSelection
	}

	target := ModalBooking
	if !a.Desk.BookingFor(a.Date).IsAvailable {
		target = ModalCancel
	}
	if !fsm.CanTransition(ModalNone, target) {
		return s, nil, ErrInvalidTransition
	}

	return Selection{
		Desk:       a.Desk.Clone(),
		Date:       a.Date,
		Modal:      target,
		Generation: s.Generation + 1,
	}, nil, nil
}

func reduceConfirm(s Selection) (Selection, Effect, error) {
	switch s.modal() {
	case ModalBooking:
		if s.Pending {
			return s, nil, ErrPending
		}
		name := strings.TrimSpace(s.EmployeeName)
		if name == "" {
			s.Notice = NoticeEmptyName
			return s, nil, ErrEmptyName
		}
		s.Pending = true
		s.Notice = ""
		return s, BookEffect{DeskID: s.Desk.ID, EmployeeName: name, Date: s.Date, Generation: s.Generation}, nil

	case ModalCancel:
		if s.Pending {
			return s, nil, ErrPending
		}
		s.Pending = true
		s.Notice = ""
		return s, CancelEffect{DeskID: s.Desk.ID, Date: s.Date, Generation: s.Generation}, nil
	}
	return s, nil, ErrNoModal
}
