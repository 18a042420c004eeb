package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/vshn/datadog-downtime/pkg/types"
)

// DowntimeAPI is the slice of the Datadog API the reconciler consumes.
type DowntimeAPI interface {
	ListDowntimes(ctx context.Context) ([]types.Downtime, error)
	CreateDowntime(ctx context.Context, d types.Downtime) (*types.Downtime, error)
	UpdateDowntime(ctx context.Context, id int64, d types.Downtime) (*types.Downtime, error)
	CancelDowntime(ctx context.Context, id int64) error
}

type Config struct {
	Logger *logr.Logger
	// Now is the clock used to default start times and to detect running
	// downtimes. Defaults to time.Now.
	Now func() time.Time
}

// Reconciler drives the remote downtime list towards a desired state. It
// holds no state of its own, every invocation recomputes everything from the
// remote service.
type Reconciler struct {
	api DowntimeAPI
	log logr.Logger
	now func() time.Time
}

func New(api DowntimeAPI, config Config) Reconciler {
	if config.Logger == nil {
		l := logr.Discard()
		config.Logger = &l
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return Reconciler{
		api: api,
		log: *config.Logger,
		now: config.Now,
	}
}

// Result is the outcome reported to the caller. Counts refer to the match
// set of the invocation; mutations already applied before a failure are not
// rolled back and are not reported.
type Result struct {
	Changed  bool   `json:"changed"`
	Msg      string `json:"msg"`
	Found    int    `json:"found"`
	Updated  int    `json:"updated"`
	Canceled int    `json:"canceled"`
}

// Reconcile performs exactly one action: no-op, create, update every match
// or cancel every match. The first error aborts the invocation.
func (r Reconciler) Reconcile(ctx context.Context, params Params) (Result, error) {
	if err := params.Validate(); err != nil {
		return Result{}, err
	}

	matching, err := FindMatching(ctx, r.api, params.Scope, params.ActiveOnly)
	if err != nil {
		return Result{}, fmt.Errorf("could not list downtimes: %w", err)
	}
	r.log.V(1).Info("Matched downtimes", "count", len(matching), "scope", params.Scope, "state", params.State)

	if len(matching) == 0 && (params.RequireMatch || params.State != StatePresent) {
		return Result{}, &NoMatchError{Scope: params.Scope}
	}

	switch params.State {
	case StatePresent:
		return r.ensurePresent(ctx, params, matching)
	case StateUpdated:
		return r.updateAll(ctx, params, matching)
	case StateAbsent:
		return r.cancelAll(ctx, params, matching)
	}
	return Result{}, fmt.Errorf("unknown state %q", params.State)
}

func (r Reconciler) ensurePresent(ctx context.Context, params Params, matching []types.Downtime) (Result, error) {
	start := params.Start
	if start == nil {
		now := r.now().Unix()
		start = &now
	}

	for _, d := range matching {
		if !scopesEqual(d.Scope, params.Scope) {
			continue
		}
		if !ptrEqual(d.Start, start) {
			continue
		}
		if !ptrEqual(d.Message, params.Message) {
			continue
		}
		if !recurrenceEqual(d.Recurrence, params.Recurrence) {
			continue
		}
		// end only participates in the match when the caller asked for one
		if params.End != nil && !ptrEqual(d.End, params.End) {
			continue
		}
		r.log.V(1).Info("Downtime already present", "id", d.ID)
		return Result{
			Found: len(matching),
			Msg:   fmt.Sprintf("matching downtime already present for scope '%s'", joinScope(params.Scope)),
		}, nil
	}

	created, err := r.api.CreateDowntime(ctx, types.Downtime{
		Scope:      params.Scope,
		Start:      start,
		End:        params.End,
		Message:    params.Message,
		Recurrence: params.Recurrence,
	})
	if err != nil {
		return Result{}, fmt.Errorf("could not create downtime: %w", err)
	}
	r.log.Info("Downtime created", "id", created.ID, "scope", params.Scope)

	return Result{
		Changed: true,
		Found:   len(matching),
		Msg:     fmt.Sprintf("downtime for scope '%s' set", joinScope(params.Scope)),
	}, nil
}

func (r Reconciler) updateAll(ctx context.Context, params Params, matching []types.Downtime) (Result, error) {
	now := r.now().Unix()
	updated := 0

	for _, d := range matching {
		// moving the start of an already running downtime is not allowed
		if params.Start != nil && (d.Start == nil || *d.Start < now) {
			r.log.V(1).Info("Skipping running downtime", "id", d.ID)
			continue
		}

		if _, err := r.api.UpdateDowntime(ctx, d.ID, types.Downtime{
			Start:      params.Start,
			End:        params.End,
			Message:    params.Message,
			Recurrence: params.Recurrence,
		}); err != nil {
			return Result{}, fmt.Errorf("could not update downtime %d: %w", d.ID, err)
		}
		r.log.Info("Downtime updated", "id", d.ID)
		updated++
	}

	return Result{
		Changed: true,
		Found:   len(matching),
		Updated: updated,
		Msg:     fmt.Sprintf("downtimes for scope '%s' updated (found %d, updated %d)", joinScope(params.Scope), len(matching), updated),
	}, nil
}

func (r Reconciler) cancelAll(ctx context.Context, params Params, matching []types.Downtime) (Result, error) {
	for _, d := range matching {
		if err := r.api.CancelDowntime(ctx, d.ID); err != nil {
			return Result{}, fmt.Errorf("could not cancel downtime %d: %w", d.ID, err)
		}
		r.log.Info("Downtime canceled", "id", d.ID)
	}

	return Result{
		Changed:  true,
		Found:    len(matching),
		Canceled: len(matching),
		Msg:      fmt.Sprintf("downtimes for scope '%s' canceled (found %d)", joinScope(params.Scope), len(matching)),
	}, nil
}
