package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/budgetgm/internal/adapters/mq/queue"
	"github.com/okian/budgetgm/internal/domain/challenge"
	"github.com/okian/budgetgm/internal/domain/roster"
	"github.com/okian/budgetgm/internal/domain/simulation"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

// Error records the handler operation, the error kind used for the
// response and the underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Op + ": " + e.Kind.Error()
	case e.Kind == nil:
		return e.Op + ": " + e.Err.Error()
	default:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	}
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of kind with no further cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap attaches op to err and keeps err's own kind.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind attaches op and kind to err.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// statusRule maps an error kind to a response. Order matters: the first
// match wins, so specific kinds come before the kinds they wrap.
type statusRule struct {
	kind   error
	status int
	code   string
}

var statusRules = []statusRule{ //nolint:gochecknoglobals // read-only table
	{roster.ErrRosterFull, http.StatusBadRequest, "roster_full"},
	{roster.ErrDuplicatePlayer, http.StatusBadRequest, "duplicate_player"},
	{roster.ErrBudgetExceeded, http.StatusBadRequest, "budget_exceeded"},
	{roster.ErrPositionLimitExceeded, http.StatusBadRequest, "position_limit_exceeded"},
	{roster.ErrIncomplete, http.StatusBadRequest, "incomplete_roster"},
	{simulation.ErrIncompleteRoster, http.StatusBadRequest, "incomplete_roster"},
	{roster.ErrInvalidRoster, http.StatusBadRequest, "invalid_roster"},
	{roster.ErrPlayerNotFound, http.StatusBadRequest, "player_not_in_pool"},
	{challenge.ErrInvalidIdentity, http.StatusBadRequest, "invalid_identity"},
	{challenge.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
	{ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{ErrNotFound, http.StatusNotFound, "not_found"},
	{challenge.ErrNotFound, http.StatusNotFound, "not_found"},
	{challenge.ErrVersionConflict, http.StatusConflict, "conflict"},
	{queue.ErrBackpressure, http.StatusTooManyRequests, "backpressure"},
	{queue.ErrClosed, http.StatusServiceUnavailable, "unavailable"},
	{challenge.ErrStoreUnavailable, http.StatusServiceUnavailable, "unavailable"},
	{challenge.ErrPoolUnavailable, http.StatusServiceUnavailable, "unavailable"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

// statusFor returns the HTTP status and machine-readable code for err.
func statusFor(err error) (int, string) {
	for _, rule := range statusRules {
		if errors.Is(err, rule.kind) {
			return rule.status, rule.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}
