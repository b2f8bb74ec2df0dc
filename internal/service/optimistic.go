package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-console/internal/store"
	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
)

// Outcome describes what happened to an optimistic mutation.
type Outcome string

const (
	// OutcomeCommitted means the backend confirmed the change.
	OutcomeCommitted Outcome = "committed"
	// OutcomeLocalOnly means the row has no server id, so the backend was not called.
	OutcomeLocalOnly Outcome = "local_only"
	// OutcomeRetained means a create was not confirmed and the placeholder row was kept.
	OutcomeRetained Outcome = "retained"
	// OutcomeReverted means the backend call failed and the row was restored.
	OutcomeReverted Outcome = "reverted"
)

// Result reports the row after an operation, the outcome, and the backend error when the
// outcome is not OutcomeCommitted because a call failed.
type Result[T any] struct {
	Row     T
	Outcome Outcome
	Err     error
}

// syncedRow is a row that may carry a backend id.
type syncedRow interface {
	store.Row
	ServerKey() (int64, bool)
}

// resourceList implements the optimistic create/edit/delete cycle shared by the students,
// courses and enrollments views. Failed edits and deletes always revert; failed creates
// keep the placeholder row.
type resourceList[T syncedRow, D any] struct {
	resource string
	rows     *store.Collection[T]
	metrics  *MetricsService
	logger   *zap.Logger

	mu     sync.Mutex
	drafts map[string]D
}

func newResourceList[T syncedRow, D any](resource string, rows *store.Collection[T], metrics *MetricsService, logger *zap.Logger) *resourceList[T, D] {
	if rows == nil {
		rows = store.New[T]()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &resourceList[T, D]{
		resource: resource,
		rows:     rows,
		metrics:  metrics,
		logger:   logger.With(zap.String("resource", resource)),
		drafts:   make(map[string]D),
	}
}

func (l *resourceList[T, D]) get(id string) (T, error) {
	row, ok := l.rows.Get(id)
	if !ok {
		return row, appErrors.Clone(appErrors.ErrNotFound, l.resource+" row not found")
	}
	return row, nil
}

func (l *resourceList[T, D]) beginEdit(id string, draftOf func(T) D) (D, error) {
	row, err := l.get(id)
	if err != nil {
		var zero D
		return zero, err
	}
	d := draftOf(row)
	l.mu.Lock()
	l.drafts[id] = d
	l.mu.Unlock()
	return d, nil
}

func (l *resourceList[T, D]) updateDraft(id string, d D) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, editing := l.drafts[id]; !editing {
		return appErrors.Clone(appErrors.ErrConflict, l.resource+" row is not being edited")
	}
	l.drafts[id] = d
	return nil
}

func (l *resourceList[T, D]) draft(id string) (D, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.drafts[id]
	return d, ok
}

func (l *resourceList[T, D]) cancelEdit(id string) {
	l.mu.Lock()
	delete(l.drafts, id)
	l.mu.Unlock()
}

func (l *resourceList[T, D]) editing() map[string]D {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]D, len(l.drafts))
	for k, v := range l.drafts {
		out[k] = v
	}
	return out
}

// create appends row, then asks the backend for the canonical record.
func (l *resourceList[T, D]) create(ctx context.Context, row T, call func(context.Context) (T, error)) (Result[T], error) {
	id := row.RowID()
	if err := l.rows.Append(row); err != nil {
		return Result[T]{}, err
	}
	if err := l.rows.Begin(id); err != nil {
		return Result[T]{}, err
	}
	defer l.rows.End(id)

	created, err := call(ctx)
	if err != nil {
		l.logger.Warn("create not confirmed by backend; keeping local row",
			zap.String("row", id), zap.Error(err))
		l.record("create", OutcomeRetained)
		return Result[T]{Row: row, Outcome: OutcomeRetained, Err: err}, nil
	}
	if _, err := l.rows.Replace(id, created); err != nil {
		// The row vanished (refresh) while the call was in flight.
		l.logger.Info("created row no longer present", zap.String("row", id), zap.Error(err))
	} else if sid, ok := created.ServerKey(); ok {
		l.dropDuplicates(id, sid)
	}
	l.record("create", OutcomeCommitted)
	return Result[T]{Row: created, Outcome: OutcomeCommitted}, nil
}

// save applies the pending draft locally and syncs it when the row has a backend id.
// apply returns the edited row; call returns the backend's version of it.
func (l *resourceList[T, D]) save(ctx context.Context, id string, apply func(T, D) (T, error), call func(context.Context, int64, T) (T, error)) (Result[T], error) {
	d, editing := l.draft(id)
	if !editing {
		return Result[T]{}, appErrors.Clone(appErrors.ErrConflict, l.resource+" row is not being edited")
	}
	if err := l.rows.Begin(id); err != nil {
		return Result[T]{}, err
	}
	defer l.rows.End(id)

	prev, err := l.get(id)
	if err != nil {
		return Result[T]{}, err
	}
	next, err := apply(prev, d)
	if err != nil {
		return Result[T]{}, err
	}
	if _, err := l.rows.Replace(id, next); err != nil {
		return Result[T]{}, err
	}
	l.cancelEdit(id)

	serverID, synced := next.ServerKey()
	if !synced {
		l.record("update", OutcomeLocalOnly)
		return Result[T]{Row: next, Outcome: OutcomeLocalOnly}, nil
	}

	confirmed, err := call(ctx, serverID, next)
	if err != nil {
		if _, rerr := l.rows.Replace(id, prev); rerr != nil {
			l.logger.Error("revert after failed update", zap.String("row", id), zap.Error(rerr))
		}
		l.logger.Warn("update rejected by backend; change reverted",
			zap.String("row", id), zap.Int64("server_id", serverID), zap.Error(err))
		l.record("update", OutcomeReverted)
		return Result[T]{Row: prev, Outcome: OutcomeReverted, Err: err}, nil
	}
	if _, err := l.rows.Replace(id, confirmed); err != nil {
		l.logger.Info("updated row no longer present", zap.String("row", id), zap.Error(err))
	}
	l.record("update", OutcomeCommitted)
	return Result[T]{Row: confirmed, Outcome: OutcomeCommitted}, nil
}

// remove drops the row locally and deletes it on the backend when it has a backend id.
func (l *resourceList[T, D]) remove(ctx context.Context, id string, call func(context.Context, int64) error) (Result[T], error) {
	if err := l.rows.Begin(id); err != nil {
		return Result[T]{}, err
	}
	defer l.rows.End(id)

	removed, err := l.rows.Remove(id)
	if err != nil {
		return Result[T]{}, err
	}
	l.cancelEdit(id)

	serverID, synced := removed.Item.ServerKey()
	if !synced {
		l.record("delete", OutcomeLocalOnly)
		return Result[T]{Row: removed.Item, Outcome: OutcomeLocalOnly}, nil
	}

	if err := call(ctx, serverID); err != nil {
		l.rows.Restore(removed)
		l.logger.Warn("delete rejected by backend; row restored",
			zap.String("row", id), zap.Int64("server_id", serverID), zap.Error(err))
		l.record("delete", OutcomeReverted)
		return Result[T]{Row: removed.Item, Outcome: OutcomeReverted, Err: err}, nil
	}
	l.record("delete", OutcomeCommitted)
	return Result[T]{Row: removed.Item, Outcome: OutcomeCommitted}, nil
}

// reset replaces the collection with rows loaded from the backend. Rows that were already
// known keep their client id; local-only rows are kept after the loaded ones.
func (l *resourceList[T, D]) reset(loaded []T, withClientID func(T, string) T) {
	known := make(map[int64]string)
	var localOnly []T
	for _, row := range l.rows.List() {
		if sid, ok := row.ServerKey(); ok {
			known[sid] = row.RowID()
		} else {
			localOnly = append(localOnly, row)
		}
	}
	next := make([]T, 0, len(loaded)+len(localOnly))
	for _, row := range loaded {
		if sid, ok := row.ServerKey(); ok {
			if cid, seen := known[sid]; seen {
				row = withClientID(row, cid)
			}
		}
		next = append(next, row)
	}
	next = append(next, localOnly...)
	l.rows.Reset(next)

	l.mu.Lock()
	for id := range l.drafts {
		if _, ok := l.rows.Get(id); !ok {
			delete(l.drafts, id)
		}
	}
	l.mu.Unlock()
}

// dropDuplicates removes every row except keep that carries serverID. A refresh that
// lands while a create is in flight loads the new record under a fresh client id.
func (l *resourceList[T, D]) dropDuplicates(keep string, serverID int64) {
	for _, row := range l.rows.List() {
		sid, ok := row.ServerKey()
		if !ok || sid != serverID || row.RowID() == keep {
			continue
		}
		if _, err := l.rows.Remove(row.RowID()); err != nil {
			continue
		}
		l.cancelEdit(row.RowID())
		l.logger.Debug("dropped duplicate row", zap.String("row", row.RowID()), zap.Int64("server_id", serverID))
	}
}

func (l *resourceList[T, D]) record(op string, outcome Outcome) {
	l.metrics.RecordOutcome(l.resource, op, outcome)
}
