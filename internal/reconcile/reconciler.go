package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	syncerrors "github.com/randalmurphal/todosync/internal/errors"
	"github.com/randalmurphal/todosync/internal/extract"
	"github.com/randalmurphal/todosync/internal/snapshot"
	"github.com/randalmurphal/todosync/internal/storage"
	"github.com/randalmurphal/todosync/internal/task"
)

// Guard provides exclusive access to the snapshot for one pass.
type Guard interface {
	Acquire() error
	Release()
}

// Result describes one reconciliation pass.
type Result struct {
	RunID string

	// Skipped is true when extraction failed and the pass did not reconcile.
	Skipped bool

	// Diagnostic explains a skipped pass or a recovered extraction.
	Diagnostic string

	// LoadDiagnostic is set when the snapshot had to be recovered on load.
	LoadDiagnostic string

	Plan     Plan
	Rejected []task.Rejection
	Warnings []task.Warning

	// Document is the state after the pass (or the unchanged state when
	// skipped). For a dry run it was never saved.
	Document *snapshot.Document

	Saved bool
}

// Reconciler runs reconciliation passes against one store.
type Reconciler struct {
	store     storage.Store
	extractor extract.Extractor
	guard     Guard
	logger    *slog.Logger

	extractTimeout time.Duration
	skipOnFailure  bool
	dryRun         bool
	newRunID       func() string
}

// New creates a Reconciler.
func New(store storage.Store, extractor extract.Extractor, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:         store,
		extractor:     extractor,
		logger:        slog.Default(),
		skipOnFailure: true,
		newRunID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one full pass over text: extract candidates, validate them,
// diff against the stored summary, apply, and save.
//
// Nothing is written when the context is canceled, extraction fails and
// skipping is enabled, the pass is a dry run, or any step returns an error.
func (r *Reconciler) Run(ctx context.Context, text string) (*Result, error) {
	res := &Result{RunID: r.newRunID()}
	logger := r.logger.With("run_id", res.RunID)

	release, err := r.acquire()
	if err != nil {
		logger.Warn("pass not started", "error", err)
		return nil, err
	}
	defer release()

	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	res.Document = doc
	res.LoadDiagnostic = doc.Diagnostic
	if doc.Diagnostic != "" {
		logger.Warn("snapshot recovered", "location", r.store.Location(), "diagnostic", doc.Diagnostic)
	}

	logger.Info("extracting tasks", "known", doc.Len(), "input_bytes", len(text))
	extracted, err := r.extract(ctx, text, doc)
	if err != nil {
		logger.Warn("extraction aborted", "error", err)
		return nil, fmt.Errorf("extract: %w", err)
	}
	res.Diagnostic = extracted.Diagnostic

	if extracted.Failed {
		logger.Warn("extraction failed", "diagnostic", extracted.Diagnostic, "skip", r.skipOnFailure)
		if r.skipOnFailure {
			res.Skipped = true
			return res, nil
		}
	}

	batch := task.ValidateBatch(extracted.Candidates)
	res.Rejected = batch.Rejected
	res.Warnings = batch.Warnings
	for _, rej := range batch.Rejected {
		logger.Warn("candidate rejected", "index", rej.Index, "task_id", rej.TaskID, "error", rej.Err)
	}
	for _, w := range batch.Warnings {
		logger.Debug("candidate field dropped", "index", w.Index, "task_id", w.TaskID, "field", w.Field, "value", w.Value)
	}

	plan, err := r.applyPlan(batch.Tasks, doc)
	if err != nil {
		logger.Error("apply failed", "error", err)
		return nil, err
	}
	res.Plan = plan

	adds, updates, removes := plan.Counts()
	logger.Info("plan computed",
		"candidates", len(extracted.Candidates),
		"accepted", len(batch.Tasks),
		"rejected", len(batch.Rejected),
		"add", adds,
		"update", updates,
		"remove", removes,
	)
	for _, cmd := range plan.Commands {
		logger.Debug("command", "cmd", cmd.String())
	}

	if r.dryRun {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		logger.Warn("pass canceled before save", "error", err)
		return nil, err
	}

	if err := r.store.Save(ctx, doc); err != nil {
		logger.Error("save failed", "location", r.store.Location(), "error", err)
		return nil, err
	}
	res.Saved = true
	logger.Info("snapshot saved", "location", r.store.Location(), "tasks", doc.Len())
	return res, nil
}

// RemoveTask removes one task from the stored snapshot.
func (r *Reconciler) RemoveTask(ctx context.Context, id string) error {
	release, err := r.acquire()
	if err != nil {
		return err
	}
	defer release()

	doc, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	if !doc.HasTask(id) && !doc.Summary.Has(id) {
		return syncerrors.ErrTaskNotFound(id)
	}
	if err := Apply([]Command{Remove(id)}, doc); err != nil {
		return err
	}
	if err := r.store.Save(ctx, doc); err != nil {
		return err
	}
	r.logger.Info("task removed", "task_id", id, "location", r.store.Location())
	return nil
}

// Reset replaces the stored snapshot with an empty document.
func (r *Reconciler) Reset(ctx context.Context) error {
	release, err := r.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := r.store.Save(ctx, snapshot.New()); err != nil {
		return err
	}
	r.logger.Info("snapshot reset", "location", r.store.Location())
	return nil
}

func (r *Reconciler) acquire() (func(), error) {
	if r.guard == nil {
		return func() {}, nil
	}
	if err := r.guard.Acquire(); err != nil {
		return nil, err
	}
	return r.guard.Release, nil
}

func (r *Reconciler) extract(ctx context.Context, text string, doc *snapshot.Document) (extract.Result, error) {
	if r.extractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.extractTimeout)
		defer cancel()
	}

	known := make([]extract.KnownTask, 0, doc.Summary.Len())
	for _, id := range doc.Summary.Keys() {
		desc, _ := doc.Summary.Get(id)
		known = append(known, extract.KnownTask{ID: id, Description: desc})
	}

	res, err := r.extractor.Extract(ctx, extract.Request{Text: text, Known: known})
	if err != nil {
		return extract.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return extract.Result{}, err
	}
	return res, nil
}

// applyPlan diffs tasks against doc, applies the plan to doc, and checks
// that the result matches what was planned.
func (r *Reconciler) applyPlan(tasks []task.Task, doc *snapshot.Document) (Plan, error) {
	plan := Diff(tasks, doc.Summary)
	if err := Apply(plan.Commands, doc); err != nil {
		return Plan{}, err
	}
	if err := checkPlanned(doc, plan); err != nil {
		return Plan{}, err
	}
	return plan, nil
}
