package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"deskbook/internal/deskapi"
	"deskbook/internal/metrics"
	"deskbook/internal/models"
)

// ErrUnknownDesk is returned when a click names a desk that is not in the directory.
var ErrUnknownDesk = errors.New("unknown desk")

// ErrInvalidDate is returned when a click carries a malformed date.
var ErrInvalidDate = errors.New("invalid date")

// Gateway performs booking mutations on the remote service.
type Gateway interface {
	BookDesk(ctx context.Context, id models.DeskID, employeeName, date string) error
	CancelBooking(ctx context.Context, id models.DeskID, date string) error
}

// Directory resolves desks and reloads them after a mutation.
type Directory interface {
	Desk(id string) (models.Desk, bool)
	Refresh(ctx context.Context) error
}

// Workflow turns user input into session actions and runs the effects they produce.
type Workflow struct {
	gateway   Gateway
	directory Directory
	logger    *zerolog.Logger
}

func NewWorkflow(gateway Gateway, directory Directory, logger *zerolog.Logger) *Workflow {
	return &Workflow{gateway: gateway, directory: directory, logger: logger}
}

// Select opens the dialog for the desk whose id text is id on date.
func (w *Workflow) Select(sess *Session, id, date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	desk, ok := w.directory.Desk(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDesk, id)
	}
	_, err := sess.Dispatch(Click{Desk: desk, Date: date})
	return err
}

// SetName stores the booking dialog's name input.
func (w *Workflow) SetName(sess *Session, name string) error {
	_, err := sess.Dispatch(InputName{Name: name})
	return err
}

// Confirm submits the open dialog and waits for the gateway.
func (w *Workflow) Confirm(ctx context.Context, sess *Session) error {
	eff, err := sess.Dispatch(Confirm{})
	if err != nil {
		return err
	}
	return w.run(ctx, sess, eff)
}

// ConfirmBooking stores name and submits the booking dialog.
func (w *Workflow) ConfirmBooking(ctx context.Context, sess *Session, name string) error {
	if err := w.SetName(sess, name); err != nil {
		return err
	}
	eff, err := sess.Dispatch(Confirm{Modal: ModalBooking})
	if err != nil {
		return err
	}
	return w.run(ctx, sess, eff)
}

// ConfirmCancel submits the cancel dialog.
func (w *Workflow) ConfirmCancel(ctx context.Context, sess *Session) error {
	eff, err := sess.Dispatch(Confirm{Modal: ModalCancel})
	if err != nil {
		return err
	}
	return w.run(ctx, sess, eff)
}

// Dismiss closes the open dialog.
func (w *Workflow) Dismiss(sess *Session) error {
	_, err := sess.Dispatch(Dismiss{})
	return err
}

// Refresh reloads the directory. Failures keep the previous desks and are reported only.
func (w *Workflow) Refresh(ctx context.Context) error {
	return w.directory.Refresh(ctx)
}

func (w *Workflow) run(ctx context.Context, sess *Session, eff Effect) error {
	var (
		gen     uint64
		callErr error
	)

	switch e := eff.(type) {
	case nil:
		return nil
	case RefreshEffect:
		if err := w.directory.Refresh(ctx); err != nil {
			w.logger.Warn().Err(err).Str("session", sess.ID).Msg("Showing stale desks after mutation")
		}
		return nil
	case BookEffect:
		gen = e.Generation
		callErr = w.gateway.BookDesk(ctx, e.DeskID, e.EmployeeName, e.Date)
		if callErr == nil {
			w.logger.Info().Str("desk", e.DeskID.String()).Str("date", e.Date).Str("employee", e.EmployeeName).Msg("Desk booked")
		}
	case CancelEffect:
		gen = e.Generation
		callErr = w.gateway.CancelBooking(ctx, e.DeskID, e.Date)
		if callErr == nil {
			w.logger.Info().Str("desk", e.DeskID.String()).Str("date", e.Date).Msg("Booking cancelled")
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnknownAction, eff)
	}

	var next Effect
	var err error
	if callErr != nil {
		w.logger.Error().Err(callErr).Str("session", sess.ID).Msg("Booking request failed")
		next, err = sess.Dispatch(Failed{Generation: gen, Err: callErr, Message: deskapi.UserMessage(callErr)})
	} else {
		next, err = sess.Dispatch(Succeeded{Generation: gen})
	}

	if errors.Is(err, ErrStaleResult) {
		metrics.IncStaleResult()
		w.logger.Debug().Str("session", sess.ID).Uint64("generation", gen).Msg("Ignoring stale result")
		return nil
	}
	if err != nil {
		return err
	}
	if callErr != nil {
		return callErr
	}
	return w.run(ctx, sess, next)
}
