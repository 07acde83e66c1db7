// Package ownershipsync links newly created courses to their owners' records
// in the background. Jobs are buffered, batched on a ticker and written with a
// single AttachOwnedCourses call per batch.
package ownershipsync

import (
	"context"
	"fmt"
	"time"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/schoolproject/internal/logger"
	"github.com/patric-chuzhbe/schoolproject/internal/models"
)

type ownershipAttacher interface {
	AttachOwnedCourses(ctx context.Context, usersCourses map[string][]string) error
}

type Syncer struct {
	queue                    chan *models.OwnershipJob
	db                       ownershipAttacher
	delayBetweenQueueFetches time.Duration
	errorChannel             chan error
	done                     chan struct{}
}

func New(
	db ownershipAttacher,
	channelCapacity int,
	delayBetweenQueueFetches time.Duration,
) *Syncer {
	return &Syncer{
		db:                       db,
		queue:                    make(chan *models.OwnershipJob, channelCapacity),
		delayBetweenQueueFetches: delayBetweenQueueFetches,
		errorChannel:             make(chan error, channelCapacity),
		done:                     make(chan struct{}),
	}
}

// ListenErrors calls callback for every failed batch until the syncer stops.
func (s *Syncer) ListenErrors(callback func(error)) {
	go func() {
		for err := range s.errorChannel {
			callback(err)
		}
	}()
}

// EnqueueJob queues a link. It blocks when the queue is full.
func (s *Syncer) EnqueueJob(job *models.OwnershipJob) {
	if job == nil || job.UserID == "" || job.CourseID == "" {
		return
	}
	s.queue <- job
}

func collectCoursesByUser(jobs []models.OwnershipJob) map[string][]string {
	result := map[string][]string{}
	for _, job := range jobs {
		result[job.UserID] = append(result[job.UserID], job.CourseID)
	}
	for userID, courseIDs := range result {
		result[userID] = funk.UniqString(courseIDs)
	}

	return result
}

// Run starts the worker. It drains what is left in the queue and closes the
// error channel once ctx is cancelled; Done is closed after that.
func (s *Syncer) Run(ctx context.Context) {
	go func() {
		defer close(s.done)
		defer close(s.errorChannel)

		ticker := time.NewTicker(s.delayBetweenQueueFetches)
		defer ticker.Stop()

		var jobs []models.OwnershipJob

		for {
			select {
			case job := <-s.queue:
				jobs = append(jobs, *job)
			case <-ticker.C:
				jobs = s.flush(ctx, jobs)
			case <-ctx.Done():
			drain:
				for {
					select {
					case job := <-s.queue:
						jobs = append(jobs, *job)
					default:
						break drain
					}
				}
				s.flush(context.WithoutCancel(ctx), jobs)
				return
			}
		}
	}()
}

// Done is closed when the worker has stopped.
func (s *Syncer) Done() <-chan struct{} {
	return s.done
}

// flush writes jobs in one batch and returns the emptied pending list. A failed
// batch is reported on the error channel and dropped, it is never retried.
func (s *Syncer) flush(ctx context.Context, jobs []models.OwnershipJob) []models.OwnershipJob {
	if len(jobs) == 0 {
		return jobs
	}

	if err := s.db.AttachOwnedCourses(ctx, collectCoursesByUser(jobs)); err != nil {
		select {
		case s.errorChannel <- fmt.Errorf("in internal/ownershipsync/ownershipsync.go/flush(): dropping %d jobs after `s.db.AttachOwnedCourses()` failure: %w", len(jobs), err):
		default:
			logger.Log.Warnln("ownership sync error dropped, error channel is full")
		}
		return jobs[:0]
	}
	logger.Log.Infof("linked %d courses to their owners", len(jobs))

	return jobs[:0]
}
