package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

// The change feed is best effort: a failed publish is logged and dropped,
// never surfaced to the mutation response.

type feedJob struct {
	evs []domain.ChangeEvent
}

var (
	once           sync.Once
	jobs           chan feedJob
	workerCount    int
	jobBuf         int
	publishTimeout time.Duration
	handoffTimeout time.Duration
	bg             = context.Background()
	globalFeed     ChangePublisher
	globalLog      *log.Logger
	workerWG       sync.WaitGroup
)

// shutdownChangeSender stops worker goroutines and clears shared state. It is
// intended for tests.
func shutdownChangeSender() {
	if jobs != nil {
		close(jobs)
		jobs = nil
	}

	workerWG.Wait()

	globalFeed = nil
	globalLog = nil
	workerCount = 0
	jobBuf = 0
	publishTimeout = 0
	handoffTimeout = 0
	once = sync.Once{}
	workerWG = sync.WaitGroup{}
}

func initChangeSender(feed ChangePublisher, logger *log.Logger) {
	once.Do(func() {
		globalFeed = feed
		if logger == nil {
			panic("Logger is not initialized")
		}
		globalLog = logger

		workerCount = envInt("CHANGEFEED_WORKERS", 4)
		jobBuf = envInt("CHANGEFEED_BUFFER", 1024)
		publishTimeout = envDur("CHANGEFEED_TIMEOUT", 30*time.Second)
		handoffTimeout = envDur("CHANGEFEED_HANDOFF_TIMEOUT", 15*time.Millisecond)

		jobs = make(chan feedJob, jobBuf)
		for i := 0; i < workerCount; i++ {
			workerWG.Add(1)
			go worker(i, jobs)
		}
		globalLog.Infof("change sender started, workers: %d, buffer: %d, timeout: %v, handoff: %v", workerCount, jobBuf, publishTimeout, handoffTimeout)
	})
}

func worker(id int, jobCh <-chan feedJob) {
	defer workerWG.Done()
	for j := range jobCh {
		ctx, cancel := context.WithTimeout(bg, publishTimeout)
		err := globalFeed.EnqueueChanges(ctx, j.evs)
		cancel()

		if err != nil {
			globalLog.Errorf("change publish failed, err: %v, count: %d, worker: %d", err, len(j.evs), id)
		}
	}
}

// publishChange hands a single change event to the sender pool. When the pool
// is saturated or not running the event is published inline; inline failures
// are logged and dropped.
func publishChange(typ domain.ChangeType, taskID string) {
	if globalFeed == nil {
		return
	}

	ev := domain.ChangeEvent{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		Type:      typ,
		Timestamp: nextTimestamp(),
	}
	job := feedJob{evs: []domain.ChangeEvent{ev}}

	if tryEnqueueJob(job) {
		return
	}

	if globalLog != nil {
		globalLog.Warn("change sender saturated; publishing inline")
	}

	timeout := publishTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(bg, timeout)
	err := globalFeed.EnqueueChanges(ctx, job.evs)
	cancel()
	if err != nil && globalLog != nil {
		globalLog.Errorf("inline change publish failed, err: %v, task: %s", err, taskID)
	}
}

func tryEnqueueJob(job feedJob) bool {
	if jobs == nil {
		return false
	}

	if ok, closed := trySendNonBlocking(jobs, job); closed {
		return false
	} else if ok {
		return true
	}

	if handoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(handoffTimeout)
	defer timer.Stop()

	ok, closed := sendWithTimer(jobs, job, timer.C)
	if closed {
		return false
	}
	return ok
}

func trySendNonBlocking(ch chan feedJob, job feedJob) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan feedJob, job feedJob, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	case <-timer:
		return false, false
	}
}
