package health

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/monocle-dev/fleetwatch/internal/models"
	"github.com/monocle-dev/fleetwatch/internal/types"
)

type Action string

const (
	ActionNone        Action = "none"
	ActionOpened      Action = "opened"
	ActionResolved    Action = "resolved"
	ActionEscalated   Action = "escalated"
	ActionDeescalated Action = "deescalated"
)

// TransitionAction maps a status change to the incident action it requires.
func TransitionAction(from, to types.ServerStatus) Action {
	switch {
	case from == to:
		return ActionNone
	case from == types.StatusOnline && (to == types.StatusDegraded || to == types.StatusDown):
		return ActionOpened
	case (from == types.StatusDegraded || from == types.StatusDown) && to == types.StatusOnline:
		return ActionResolved
	case from == types.StatusDegraded && to == types.StatusDown:
		return ActionEscalated
	case from == types.StatusDown && to == types.StatusDegraded:
		return ActionDeescalated
	}
	return ActionNone
}

// Tracker opens, escalates, de-escalates and resolves incidents as host
// statuses change.
type Tracker struct {
	log zerolog.Logger
}

func NewTracker(log zerolog.Logger) *Tracker {
	return &Tracker{log: log.With().Str("component", "tracker").Logger()}
}

// Reconcile applies the incident action for a from -> to change of hostname.
// A broken active-incident invariant is logged and skipped; store failures
// are returned.
func (t *Tracker) Reconcile(ctx context.Context, w IncidentWriter, hostname string, from, to types.ServerStatus, now time.Time) (Action, error) {
	action := TransitionAction(from, to)

	var err error

	switch action {
	case ActionNone:
		return ActionNone, nil
	case ActionOpened:
		err = w.CreateIncident(ctx, &models.Incident{
			Hostname:  hostname,
			IsActive:  true,
			Status:    to,
			CreatedAt: now,
		})
	case ActionResolved:
		resolvedAt := now
		err = w.UpdateActiveIncident(ctx, hostname, IncidentUpdate{ResolvedAt: &resolvedAt})
	case ActionEscalated, ActionDeescalated:
		err = w.UpdateActiveIncident(ctx, hostname, IncidentUpdate{Status: to})
	}

	if errors.Is(err, ErrDataInconsistency) {
		t.log.Warn().
			Err(err).
			Str("hostname", hostname).
			Str("from", string(from)).
			Str("to", string(to)).
			Str("action", string(action)).
			Msg("skipping incident mutation")
		return ActionNone, nil
	}

	if err != nil {
		return ActionNone, errors.Wrapf(err, "%s incident for %s", action, hostname)
	}

	t.log.Info().
		Str("hostname", hostname).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("action", string(action)).
		Msg("incident " + string(action))

	return action, nil
}
