// ABOUTME: Optimistic update helper shared by every mutating operation.
// ABOUTME: Tries the server, merges on success, applies the local mutation when the backend is unavailable.
package optimistic

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/2389-research/connect/internal/api"
	"github.com/2389-research/connect/internal/logging"
	"github.com/2389-research/connect/internal/state"
)

// Outcome is how an optimistic operation ended.
type Outcome int

const (
	// Synced means the server accepted the change and its response was merged.
	Synced Outcome = iota + 1
	// LocalOnly means the server was unreachable and the change exists only on this client.
	LocalOnly
	// Rejected means the server (or the merge) refused the change; nothing was mutated.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Synced:
		return "synced"
	case LocalOnly:
		return "local-only"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result reports an operation's outcome and, unless Synced, the error behind it.
type Result struct {
	Outcome Outcome
	Err     error
}

// Applied reports whether the change is reflected in local state.
func (r Result) Applied() bool {
	return r.Outcome == Synced || r.Outcome == LocalOnly
}

// Message is the user-facing reason for a non-synced result.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return api.ErrorMessage(r.Err)
}

// Op describes one optimistic operation.
type Op[T any] struct {
	// Key identifies the operation in the state store, e.g. state.Key("like", 42).
	Key string

	// Remote performs the server call.
	Remote func(ctx context.Context) (T, error)

	// Synced merges the server's response into local state. Returning an error
	// turns the outcome into Rejected.
	Synced func(T) error

	// Local applies the client-computed mutation when the server is unavailable.
	Local func()

	// Notice overrides the offline banner text.
	Notice string

	// CanFallback decides whether an error is eligible for the local path.
	// Defaults to api.IsUnavailable.
	CanFallback func(error) bool
}

// Run executes op against store. The key is Pending for the duration and never left Pending.
func Run[T any](ctx context.Context, store *state.Store, op Op[T]) (res Result) {
	log := logging.Log.WithField("op", op.Key)

	store.Begin(op.Key)
	defer func() {
		switch res.Outcome {
		case Synced:
			store.Succeed(op.Key)
		case LocalOnly:
			store.Fallback(op.Key, res.Err)
		default:
			store.Reject(op.Key, res.Err)
		}
	}()

	value, err := op.Remote(ctx)
	if err == nil {
		if op.Synced != nil {
			if merr := op.Synced(value); merr != nil {
				log.WithError(merr).Warn("server response could not be applied")
				return Result{Outcome: Rejected, Err: merr}
			}
		}
		store.ClearNotice()
		return Result{Outcome: Synced}
	}

	canFallback := op.CanFallback
	if canFallback == nil {
		canFallback = api.IsUnavailable
	}
	if errors.Is(err, context.Canceled) || !canFallback(err) {
		log.WithError(err).Debug("operation rejected")
		return Result{Outcome: Rejected, Err: err}
	}

	log.WithFields(logrus.Fields{"status": api.StatusCode(err)}).WithError(err).Info("backend unavailable, applying change locally")
	if op.Local != nil {
		op.Local()
	}
	notice := op.Notice
	if notice == "" {
		notice = state.DefaultNotice
	}
	store.SetNotice(notice)
	return Result{Outcome: LocalOnly, Err: err}
}
