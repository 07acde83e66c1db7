package ownershipsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/schoolproject/internal/models"
)

type fakeAttacher struct {
	mu      sync.Mutex
	batches []map[string][]string
	failN   int // negative fails forever
	calls   int
}

func (f *fakeAttacher) AttachOwnedCourses(ctx context.Context, usersCourses map[string][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failN != 0 {
		if f.failN > 0 {
			f.failN--
		}
		return errors.New("store is down")
	}
	f.batches = append(f.batches, usersCourses)
	return nil
}

func (f *fakeAttacher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAttacher) snapshot() []map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string][]string(nil), f.batches...)
}

func TestCollectCoursesByUser(t *testing.T) {
	result := collectCoursesByUser([]models.OwnershipJob{
		{UserID: "u1", CourseID: "c1"},
		{UserID: "u1", CourseID: "c1"},
		{UserID: "u1", CourseID: "c2"},
		{UserID: "u2", CourseID: "c3"},
	})

	assert.Equal(t, map[string][]string{
		"u1": {"c1", "c2"},
		"u2": {"c3"},
	}, result)
}

func TestSyncerBatches(t *testing.T) {
	db := &fakeAttacher{}
	syncer := New(db, 10, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	syncer.Run(ctx)

	syncer.EnqueueJob(&models.OwnershipJob{UserID: "u1", CourseID: "c1"})
	syncer.EnqueueJob(&models.OwnershipJob{UserID: "u1", CourseID: "c2"})
	syncer.EnqueueJob(&models.OwnershipJob{UserID: "", CourseID: "ignored"})

	require.Eventually(t, func() bool {
		linked := map[string][]string{}
		for _, batch := range db.snapshot() {
			for userID, courseIDs := range batch {
				linked[userID] = append(linked[userID], courseIDs...)
			}
		}
		return len(linked["u1"]) == 2
	}, time.Second, 10*time.Millisecond)

	for _, batch := range db.snapshot() {
		assert.NotContains(t, batch, "")
	}
}

func TestSyncerReportsAndDropsFailedBatch(t *testing.T) {
	db := &fakeAttacher{failN: -1}
	syncer := New(db, 10, 5*time.Millisecond)

	var (
		mu   sync.Mutex
		errs []error
	)
	syncer.ListenErrors(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	syncer.Run(ctx)
	syncer.EnqueueJob(&models.OwnershipJob{UserID: "u1", CourseID: "c1"})
	syncer.EnqueueJob(&models.OwnershipJob{UserID: "u2", CourseID: "c2"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) >= 1
	}, time.Second, 5*time.Millisecond)

	callsAfterFailure := db.callCount()
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, callsAfterFailure, db.callCount(), "A failed batch must not be written again")
	assert.LessOrEqual(t, callsAfterFailure, 2)
	assert.Empty(t, db.snapshot())

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorContains(t, errs[0], "store is down")
}

func TestSyncerContinuesAfterFailedBatch(t *testing.T) {
	db := &fakeAttacher{failN: 1}
	syncer := New(db, 10, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	syncer.Run(ctx)

	syncer.EnqueueJob(&models.OwnershipJob{UserID: "u1", CourseID: "c1"})
	require.Eventually(t, func() bool {
		return db.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	syncer.EnqueueJob(&models.OwnershipJob{UserID: "u1", CourseID: "c2"})
	require.Eventually(t, func() bool {
		return len(db.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, map[string][]string{"u1": {"c2"}}, db.snapshot()[0])
}

func TestSyncerFlushesOnStop(t *testing.T) {
	db := &fakeAttacher{}
	syncer := New(db, 10, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	syncer.Run(ctx)

	syncer.EnqueueJob(&models.OwnershipJob{UserID: "u1", CourseID: "c1"})
	cancel()

	select {
	case <-syncer.Done():
	case <-time.After(time.Second):
		t.Fatal("syncer did not stop")
	}

	batches := db.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"c1"}, batches[0]["u1"])
}
