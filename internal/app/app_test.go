package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/patric-chuzhbe/schoolproject/internal/config"
	"github.com/patric-chuzhbe/schoolproject/internal/logger"
	"github.com/patric-chuzhbe/schoolproject/internal/mockstorage"
	"github.com/patric-chuzhbe/schoolproject/internal/models"
	"github.com/patric-chuzhbe/schoolproject/internal/ownershipsync"
)

func newMemoryApp(t *testing.T) *App {
	t.Helper()

	t.Setenv("STORAGE", "memory")
	t.Setenv("PASSWORD_HASH_COST", "4")

	app, err := New(config.WithDisableFlagsParsing(true))
	require.NoError(t, err)
	t.Cleanup(func() {
		app.stopSyncer()
		<-app.syncer.Done()
	})

	return app
}

func TestNewWithUnknownStorage(t *testing.T) {
	t.Setenv("STORAGE", "redis")

	_, err := New(config.WithDisableFlagsParsing(true))
	assert.Error(t, err)
}

func TestSeedIsIdempotent(t *testing.T) {
	app := newMemoryApp(t)
	ctx := context.Background()

	app.Seed(ctx)
	app.Seed(ctx)

	courses, err := app.db.GetCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, models.SeedCourseName, courses[0].Name)
	assert.Equal(t, models.SeedCourseDescription, courses[0].Description)
}

func TestSeedLogsOutcome(t *testing.T) {
	app := newMemoryApp(t)
	ctx := context.Background()

	core, logs := observer.New(zapcore.InfoLevel)
	previous := logger.Log
	logger.Log = zap.New(core).Sugar()
	defer func() {
		logger.Log = previous
	}()

	app.Seed(ctx)
	app.Seed(ctx)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Contains(t, entries[0].Message, "Курс успешно создан и сохранен в базе данных")
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Contains(t, entries[1].Message, "Курс с таким именем уже существует")
}

func TestSeedCanBeSkipped(t *testing.T) {
	t.Setenv("SKIP_SEED_COURSE", "true")
	app := newMemoryApp(t)
	ctx := context.Background()

	app.Seed(ctx)

	count, err := app.db.GetNumberOfCourses(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHandler(t *testing.T) {
	app := newMemoryApp(t)

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestNewFailsWhenGRPCAddressIsBusy(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	t.Setenv("STORAGE", "memory")
	t.Setenv("GRPC_ADDRESS", listener.Addr().String())

	app, err := New(config.WithDisableFlagsParsing(true))
	assert.Error(t, err)
	assert.Nil(t, app)
}

func TestReleaseStopsSyncerAndClosesStorage(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.On("Close").Return(nil).Once()

	syncer := ownershipsync.New(db, 1, time.Hour)
	ctx, stop := context.WithCancel(context.Background())
	syncer.Run(ctx)

	app := &App{db: db, syncer: syncer, stopSyncer: stop}
	app.release()

	select {
	case <-syncer.Done():
	default:
		t.Fatal("syncer is still running")
	}
	db.AssertExpectations(t)
}

func TestReleaseWithNothingOpened(t *testing.T) {
	assert.NotPanics(t, (&App{}).release)
}
