package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/config"
	"github.com/zjrosen/specforge/internal/log"
	"github.com/zjrosen/specforge/internal/plan"
	"github.com/zjrosen/specforge/internal/pubsub"
	"github.com/zjrosen/specforge/internal/tracing"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Database.Path = filepath.Join(t.TempDir(), "catalog.db")
	cfg.Tracing.Enabled = false
	cfg.Watch.Debounce = 20 * time.Millisecond
	return cfg
}

func newApp(t *testing.T) *App {
	t.Helper()
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestNew_OpensMigratedStore(t *testing.T) {
	a := newApp(t)
	require.Equal(t, uint(1), a.DB.SchemaVersion())
	require.False(t, a.Tracing.Enabled())
	require.True(t, a.Dispatcher.Handles(command.CmdCompileTransformation))
}

func TestOpenDB_UnknownDriver(t *testing.T) {
	_, err := OpenDB(context.Background(), config.DatabaseConfig{Driver: "oracle"})
	require.ErrorContains(t, err, `unknown database driver "oracle"`)
}

func TestExecute_PublishesEventsOnBus(t *testing.T) {
	a := newApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := a.Bus.Subscribe(ctx)

	res, err := a.Execute(ctx, command.NewCreateDataModelCommand(command.SourceInternal, "tenant-a", "crm", "CRM", ""))
	require.NoError(t, err)
	id, ok := res.Data.(string)
	require.True(t, ok)

	for {
		select {
		case ev := <-events:
			changed, ok := ev.Payload.(domain.EntityChanged)
			if !ok {
				continue
			}
			require.Equal(t, pubsub.CreatedEvent, ev.Type)
			require.Equal(t, id, changed.ID)
			return
		case <-time.After(2 * time.Second):
			t.Fatal("no created event on the bus")
		}
	}
}

func TestExecute_UsesTraceIDFromContext(t *testing.T) {
	a := newApp(t)
	ctx := tracing.ContextWithTraceID(context.Background(), "trace-1")

	cmd := command.NewCreateDataModelCommand(command.SourceInternal, "tenant-a", "crm", "CRM", "")
	_, err := a.Execute(ctx, cmd)
	require.NoError(t, err)
	require.Equal(t, "trace-1", cmd.TraceID())
}

func TestExecute_ReturnsHandlerError(t *testing.T) {
	a := newApp(t)
	res, err := a.Execute(context.Background(), command.NewGetCommand(command.SourceInternal, command.CmdGetSchema, "missing"))
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.False(t, res.Success)
}

func TestApply_SamplePlan(t *testing.T) {
	a := newApp(t)
	res, err := a.Apply(context.Background(), filepath.Join("..", "plan", "testdata", "catalog.yaml"), command.SourcePlan)
	require.NoError(t, err)

	compiled, err := a.Execute(context.Background(),
		command.NewCompileTransformationCommand(command.SourceInternal, res.ID("customer_map")))
	require.NoError(t, err)
	require.NotNil(t, compiled.Data)
}

func TestWatchPlan_ReappliesOnChange(t *testing.T) {
	a := newApp(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	writePlan := func(desc string) {
		doc := "tenant: tenant-a\nschemas:\n  - ref: s\n    role: Master\n    key: widget\n    description: " + desc + "\n" +
			"    fields:\n      - {path: id, type: Scalar, scalar: String}\n"
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	}
	writePlan("first")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type outcome struct {
		res *plan.Result
		err error
	}
	applied := make(chan outcome, 4)
	done := make(chan error, 1)
	go func() {
		done <- a.WatchPlan(ctx, path, func(res *plan.Result, err error) { applied <- outcome{res, err} })
	}()

	first := <-applied
	require.NoError(t, first.err)

	writePlan("second")
	select {
	case second := <-applied:
		require.NoError(t, second.err)
		require.NotEqual(t, first.res.ID("s"), second.res.ID("s"))
	case <-time.After(5 * time.Second):
		t.Fatal("plan was not reapplied after the file changed")
	}

	versions, err := a.Execute(context.Background(),
		command.NewListSchemaVersionsCommand(command.SourceInternal, "tenant-a", "widget", domain.RoleMaster))
	require.NoError(t, err)
	require.Len(t, versions.Data, 2)

	cancel()
	require.NoError(t, <-done)
}

func TestInitLogging(t *testing.T) {
	var stderr bytes.Buffer

	cleanup, err := InitLogging(config.LogConfig{}, &stderr)
	require.NoError(t, err)
	require.NotNil(t, cleanup)
	cleanup()

	cleanup, err = InitLogging(config.LogConfig{Debug: true}, &stderr)
	require.NoError(t, err)
	log.Debug(log.CatConfig, "debug to stderr")
	cleanup()
	require.Contains(t, stderr.String(), "debug to stderr")

	path := filepath.Join(t.TempDir(), "specforge.log")
	cleanup, err = InitLogging(config.LogConfig{File: path}, &stderr)
	require.NoError(t, err)
	cleanup()
	_, err = os.Stat(path)
	require.NoError(t, err)
}
