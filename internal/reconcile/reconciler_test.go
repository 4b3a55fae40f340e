package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncerrors "github.com/randalmurphal/todosync/internal/errors"
	"github.com/randalmurphal/todosync/internal/extract"
	"github.com/randalmurphal/todosync/internal/lock"
	"github.com/randalmurphal/todosync/internal/snapshot"
	"github.com/randalmurphal/todosync/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubExtractor returns a fixed result and records the last request.
type stubExtractor struct {
	result extract.Result
	err    error
	block  bool
	got    extract.Request
}

func (s *stubExtractor) Extract(ctx context.Context, req extract.Request) (extract.Result, error) {
	s.got = req
	if s.block {
		<-ctx.Done()
		return extract.Result{}, ctx.Err()
	}
	return s.result, s.err
}

// failingStore wraps a store and fails every save.
type failingStore struct {
	storage.Store
}

func (f failingStore) Save(context.Context, *snapshot.Document) error {
	return syncerrors.ErrPersistenceWrite(f.Location()).WithCause(errors.New("disk full"))
}

// countingGuard records acquire/release calls.
type countingGuard struct {
	acquired, released int
	err                error
}

func (g *countingGuard) Acquire() error {
	if g.err != nil {
		return g.err
	}
	g.acquired++
	return nil
}

func (g *countingGuard) Release() { g.released++ }

func newReconciler(store storage.Store, ex extract.Extractor, opts ...Option) *Reconciler {
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	return New(store, ex, opts...)
}

func seed(t *testing.T, store storage.Store, raw string) {
	t.Helper()
	_, err := newReconciler(store, extract.RawExtractor{}).Run(context.Background(), raw)
	require.NoError(t, err)
}

func TestRun_FirstPassAddsTasks(t *testing.T) {
	store := storage.NewTestStore(t)
	r := newReconciler(store, extract.RawExtractor{}, WithRunID(func() string { return "run-1" }))

	res, err := r.Run(context.Background(), "```json\n"+`[
	  {"taskid": "1", "title": "Groceries", "description": "buy milk"},
	  {"taskid": "2", "title": "Call mom", "description": "call mom", "priority": true}
	]`+"\n```")
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.True(t, res.Saved)
	assert.False(t, res.Skipped)
	assert.Equal(t, []string{"add(1)", "add(2)"}, commandStrings(res.Plan.Commands))

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, doc.TaskIDs())
	assert.Equal(t, map[string]string{"1": "buy milk", "2": "call mom"}, doc.Summary.Map())
}

func TestRun_UnchangedTaskProducesNoCommand(t *testing.T) {
	store := storage.NewTestStore(t)
	seed(t, store, `[{"taskid": "1", "title": "Groceries", "description": "buy milk"}]`)

	res, err := newReconciler(store, extract.RawExtractor{}).Run(context.Background(), `[
	  {"taskid": "1", "title": "Groceries", "description": "buy milk"},
	  {"taskid": "2", "title": "Call mom", "description": "call mom"}
	]`)
	require.NoError(t, err)

	assert.Equal(t, []string{"add(2)"}, commandStrings(res.Plan.Commands))
	assert.Equal(t, map[string]string{"1": "buy milk", "2": "call mom"}, res.Document.Summary.Map())
}

func TestRun_Idempotent(t *testing.T) {
	store := storage.NewTestStore(t)
	input := `[{"taskid": "1", "title": "A", "description": "a"}, {"taskid": "2", "title": "B", "description": "b"}]`
	seed(t, store, input)

	before, err := os.ReadFile(store.Location())
	require.NoError(t, err)

	res, err := newReconciler(store, extract.RawExtractor{}).Run(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, res.Plan.IsEmpty())

	after, err := os.ReadFile(store.Location())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestRun_EmptyArrayRemovesEverything(t *testing.T) {
	store := storage.NewTestStore(t)
	seed(t, store, `[{"taskid": "1", "title": "A", "description": "x"}, {"taskid": "2", "title": "B", "description": "y"}]`)

	res, err := newReconciler(store, extract.RawExtractor{}).Run(context.Background(), "[]")
	require.NoError(t, err)
	assert.Equal(t, []string{"remove(1)", "remove(2)"}, commandStrings(res.Plan.Commands))

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, doc.IsEmpty())
}

func TestRun_ExtractionFailureSkipsPass(t *testing.T) {
	store := storage.NewTestStore(t)
	seed(t, store, `[{"taskid": "1", "title": "A", "description": "a"}]`)

	res, err := newReconciler(store, extract.RawExtractor{}).Run(context.Background(), "Sorry, I can't help with that.")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.False(t, res.Saved)
	assert.NotEmpty(t, res.Diagnostic)

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, doc.TaskIDs())
}

func TestRun_ExtractionFailureCanReconcileEmpty(t *testing.T) {
	store := storage.NewTestStore(t)
	seed(t, store, `[{"taskid": "1", "title": "A", "description": "a"}]`)

	r := newReconciler(store, extract.RawExtractor{}, WithSkipOnExtractionFailure(false))
	res, err := r.Run(context.Background(), "not json at all")
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, []string{"remove(1)"}, commandStrings(res.Plan.Commands))
}

func TestRun_RejectedCandidateDoesNotStopBatch(t *testing.T) {
	store := storage.NewTestStore(t)
	seed(t, store, `[{"taskid": "1", "title": "A", "description": "a"}, {"taskid": "2", "title": "B", "description": "b"}]`)

	res, err := newReconciler(store, extract.RawExtractor{}).Run(context.Background(), `[
	  {"taskid": "1", "title": "", "description": "a"},
	  {"title": "No id"},
	  {"taskid": "2", "title": "B", "description": "b", "category": "hobby"},
	  {"taskid": "3", "title": "C", "description": "c"}
	]`)
	require.NoError(t, err)

	assert.Len(t, res.Rejected, 2)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "category", res.Warnings[0].Field)
	assert.Equal(t, []string{"add(3)", "remove(1)"}, commandStrings(res.Plan.Commands))
}

func TestRun_DryRunDoesNotSave(t *testing.T) {
	store := storage.NewTestStore(t)
	seed(t, store, `[{"taskid": "1", "title": "A", "description": "a"}]`)

	res, err := newReconciler(store, extract.RawExtractor{}, WithDryRun(true)).
		Run(context.Background(), `[{"taskid": "2", "title": "B", "description": "b"}]`)
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.Equal(t, []string{"add(2)", "remove(1)"}, commandStrings(res.Plan.Commands))
	assert.Equal(t, []string{"2"}, res.Document.TaskIDs())

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, doc.TaskIDs())
}

func TestRun_KnownTasksPassedToExtractor(t *testing.T) {
	store := storage.NewTestStore(t)
	seed(t, store, `[{"taskid": "groceries", "title": "Groceries", "description": "buy milk"}]`)

	stub := &stubExtractor{result: extract.Result{}}
	_, err := newReconciler(store, stub).Run(context.Background(), "I bought the milk")
	require.NoError(t, err)

	assert.Equal(t, "I bought the milk", stub.got.Text)
	assert.Equal(t, []extract.KnownTask{{ID: "groceries", Description: "buy milk"}}, stub.got.Known)
}

func TestRun_ExtractTimeoutAbortsBeforeWrite(t *testing.T) {
	store := storage.NewTestStore(t)
	seed(t, store, `[{"taskid": "1", "title": "A", "description": "a"}]`)

	r := newReconciler(store, &stubExtractor{block: true}, WithExtractTimeout(10*time.Millisecond))
	_, err := r.Run(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, doc.TaskIDs())
}

func TestRun_CanceledContextAbortsBeforeWrite(t *testing.T) {
	store := storage.NewTestStore(t)
	seed(t, store, `[{"taskid": "1", "title": "A", "description": "a"}]`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newReconciler(store, extract.RawExtractor{}).Run(ctx, "[]")
	require.ErrorIs(t, err, context.Canceled)

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, doc.TaskIDs())
}

func TestRun_WriteFailureKeepsPrevious(t *testing.T) {
	inner := storage.NewTestStore(t)
	seed(t, inner, `[{"taskid": "1", "title": "A", "description": "a"}]`)

	_, err := newReconciler(failingStore{inner}, extract.RawExtractor{}).Run(context.Background(), "[]")
	require.Error(t, err)
	assert.True(t, syncerrors.HasCode(err, syncerrors.CodePersistenceWrite))

	doc, err := inner.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, doc.TaskIDs())
}

func TestRun_CorruptSnapshotStartsEmpty(t *testing.T) {
	store := storage.NewTestStore(t)
	require.NoError(t, os.WriteFile(store.Location(), []byte("{{{ not json"), 0o600))

	res, err := newReconciler(store, extract.RawExtractor{}).
		Run(context.Background(), `[{"taskid": "1", "title": "Only", "description": "only"}]`)
	require.NoError(t, err)

	assert.NotEmpty(t, res.LoadDiagnostic)
	assert.Equal(t, []string{"add(1)"}, commandStrings(res.Plan.Commands))
	assert.Equal(t, []string{"1"}, res.Document.TaskIDs())
	assert.Equal(t, []string{"1"}, res.Document.Summary.Keys())
}

func TestRun_GuardHeldForPass(t *testing.T) {
	g := &countingGuard{}
	_, err := newReconciler(storage.NewTestStore(t), extract.RawExtractor{}, WithGuard(g)).
		Run(context.Background(), "[]")
	require.NoError(t, err)
	assert.Equal(t, 1, g.acquired)
	assert.Equal(t, 1, g.released)
}

func TestRun_GuardBusy(t *testing.T) {
	busy := &countingGuard{err: syncerrors.ErrPassRunning(4242)}
	store := storage.NewTestStore(t)

	_, err := newReconciler(store, extract.RawExtractor{}, WithGuard(busy)).Run(context.Background(), "[]")
	require.Error(t, err)
	assert.True(t, syncerrors.HasCode(err, syncerrors.CodePassRunning))
	assert.Equal(t, 0, busy.released)

	_, statErr := os.Stat(store.Location())
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_PIDGuardRejectsConcurrentPass(t *testing.T) {
	store := storage.NewTestStore(t)
	lockPath := filepath.Join(filepath.Dir(store.Location()), "todos.json.lock")
	other := lock.NewPIDGuard(lockPath)
	require.NoError(t, other.Acquire())

	r := newReconciler(store, extract.RawExtractor{}, WithGuard(lock.NewPIDGuard(lockPath)))
	_, err := r.Run(context.Background(), "[]")
	require.Error(t, err)
	assert.True(t, syncerrors.HasCode(err, syncerrors.CodePassRunning))

	other.Release()
	_, err = r.Run(context.Background(), "[]")
	require.NoError(t, err)
	_, statErr := os.Stat(lockPath)
	assert.True(t, os.IsNotExist(statErr), "guard released after the pass")
}

func TestRemoveTask(t *testing.T) {
	store := storage.NewTestStore(t)
	seed(t, store, `[{"taskid": "1", "title": "A", "description": "a"}, {"taskid": "2", "title": "B", "description": "b"}]`)
	r := newReconciler(store, extract.RawExtractor{})

	require.NoError(t, r.RemoveTask(context.Background(), "1"))
	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, doc.TaskIDs())
	assert.Equal(t, []string{"2"}, doc.Summary.Keys())

	err = r.RemoveTask(context.Background(), "1")
	assert.True(t, syncerrors.HasCode(err, syncerrors.CodeTaskNotFound))
}

func TestReset(t *testing.T) {
	store := storage.NewTestStore(t)
	seed(t, store, `[{"taskid": "1", "title": "A", "description": "a"}]`)

	require.NoError(t, newReconciler(store, extract.RawExtractor{}).Reset(context.Background()))

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, doc.IsEmpty())
	assert.Empty(t, doc.Diagnostic)
}
