package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/catalog-metrics/internal/data/repos"
	"github.com/yungbote/catalog-metrics/internal/data/repos/testutil"
	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
)

type funcHandler struct {
	typ string
	fn  func(jc *Context) error
}

func (h funcHandler) Type() string           { return h.typ }
func (h funcHandler) Run(jc *Context) error { return h.fn(jc) }

func newRunner(t *testing.T) (*Runner, *Registry, repos.Set) {
	t.Helper()
	db := testutil.DB(t)
	set := repos.New(db, testutil.Logger(t))
	reg := NewRegistry()
	return NewRunner(testutil.Logger(t), reg, set.Runs), reg, set
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(funcHandler{typ: "b"}))
	require.NoError(t, reg.Register(funcHandler{typ: "a"}))
	assert.Error(t, reg.Register(funcHandler{typ: "a"}))
	assert.Error(t, reg.Register(funcHandler{}))
	assert.Error(t, reg.Register(nil))
	assert.Equal(t, []string{"a", "b"}, reg.Types())
}

func TestRunner_RecordsSuccess(t *testing.T) {
	r, reg, set := newRunner(t)
	require.NoError(t, reg.Register(funcHandler{typ: "demo", fn: func(jc *Context) error {
		jc.Succeed(Counts{Selected: 3, Updated: 2, Failed: 1}, map[string]any{"note": "ok"})
		return nil
	}}))

	jc, err := r.Run(context.Background(), "demo")
	require.NoError(t, err)

	got, err := set.Runs.GetByID(dbctx.Context{Ctx: context.Background()}, jc.Run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, types.RunStatusSucceeded, got.Status)
	assert.Equal(t, 3, got.Selected)
	assert.Equal(t, 2, got.Updated)
	assert.Equal(t, 1, got.Failed)
	assert.NotNil(t, got.FinishedAt)
	assert.JSONEq(t, `{"note":"ok"}`, string(got.Summary))
}

func TestRunner_RecordsFailureAndPanic(t *testing.T) {
	r, reg, set := newRunner(t)
	require.NoError(t, reg.Register(funcHandler{typ: "boom", fn: func(jc *Context) error {
		return errors.New("db down")
	}}))
	require.NoError(t, reg.Register(funcHandler{typ: "panic", fn: func(jc *Context) error {
		panic("unexpected")
	}}))

	jc, err := r.Run(context.Background(), "boom")
	require.Error(t, err)
	got, err := set.Runs.GetByID(dbctx.Context{Ctx: context.Background()}, jc.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusFailed, got.Status)
	assert.Equal(t, "run: db down", got.Error)

	jc, err = r.Run(context.Background(), "panic")
	require.Error(t, err)
	got, err = set.Runs.GetByID(dbctx.Context{Ctx: context.Background()}, jc.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusFailed, got.Status)
	assert.Contains(t, got.Error, "unexpected")
}

func TestRunner_UnknownJobType(t *testing.T) {
	r, _, _ := newRunner(t)
	_, err := r.Run(context.Background(), "missing")
	assert.EqualError(t, err, "no handler registered for job_type=missing")
}

func TestContext_FirstOutcomeWins(t *testing.T) {
	jc, err := NewContext(context.Background(), "demo", nil, nil, nil)
	require.NoError(t, err)
	jc.Skip("lock held", nil)
	jc.Succeed(Counts{Updated: 9}, nil)
	assert.Equal(t, types.RunStatusSkipped, jc.Run.Status)
	assert.Equal(t, "lock held", jc.Run.Error)
	assert.Zero(t, jc.Run.Updated)
}
