// Package broker implements the handoff broker (§4.5, component G): a
// single-process, loopback-bound job queue that accepts a capture's
// SceneSchema payload from the capture agent and serves it to exactly one
// importer under long-poll (§4.5.3 "at-most-once"). It never reads or
// rewrites schema fields; a job's payload is opaque bytes from submission to
// delivery, matching §3.3 "transported opaquely by the broker."
//
// The queue is a single-writer-by-submission, single-reader-by-long-poll
// structure (§5): all state transitions happen under one mutex, and waiters
// are released through one-shot channels the way fbc's own worker
// coordination (archive.Walk's callback fan-out) hands off a single result
// to a single consumer.
package broker

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobState is a job's position in the §4.5.2 lifecycle.
type JobState int

const (
	JobQueued JobState = iota
	JobDelivered
)

func (s JobState) String() string {
	switch s {
	case JobQueued:
		return "QUEUED"
	case JobDelivered:
		return "DELIVERED"
	default:
		return "UNKNOWN"
	}
}

// Job is one submitted capture payload (§4.5.2).
type Job struct {
	ID        string
	CreatedAt time.Time
	State     JobState
	Payload   []byte
}

// Queue is the broker's in-memory FIFO (§4.5.1, §4.5.3). Zero value is not
// usable; use NewQueue.
type Queue struct {
	mu      sync.Mutex
	jobs    []*Job
	waiters []chan *Job

	telemetry Telemetry
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Submit enqueues payload as a new job and returns its id. If a long-poll
// waiter is already parked, the job is handed to it directly rather than
// appended to jobs — this is what makes delivery FIFO even when a waiter
// arrived before the submission (§8 "Broker FIFO").
func (q *Queue) Submit(payload []byte) *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	job := &Job{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		State:     JobQueued,
		Payload:   payload,
	}

	if len(q.waiters) > 0 {
		w := q.waiters[0]
		q.waiters = q.waiters[1:]
		job.State = JobDelivered
		q.telemetry.recordDelivery()
		w <- job
		close(w)
		return job
	}

	q.jobs = append(q.jobs, job)
	return job
}

// Next returns the oldest queued job, or nil if the queue is empty. Callers
// implementing long-poll should fall back to Wait when Next returns nil.
func (q *Queue) Next() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pop()
}

// pop removes and returns the head job, marking it delivered. Caller must
// hold q.mu.
func (q *Queue) pop() *Job {
	if len(q.jobs) == 0 {
		return nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	job.State = JobDelivered
	q.telemetry.recordDelivery()
	return job
}

// Wait blocks until a job is available or the timeout elapses. It returns
// (nil, false) on timeout — the long-poll
// caller's cue to reply with an empty body (§4.5.3). At most one waiter ever
// receives a given job: Submit hands a job to a single parked waiter, and
// Wait itself pops from the FIFO under the same mutex a parked waiter was
// registered under, so the two paths never race over the same job (§8
// "at-most-once delivery").
//
// A timeout firing and Submit finding the parked waiter can happen at the
// same instant: the select below may already have committed to the timeout
// branch by the time Submit locks q.mu and sees ch still in q.waiters. If
// removeWaiter then reports it found nothing, Submit got there first and
// (holding the same mutex) has already sent the job to ch before unlocking
// — so the job is not lost, only briefly buffered, and the follow-up receive
// below returns immediately rather than re-blocking.
func (q *Queue) Wait(timeout time.Duration) (*Job, bool) {
	q.mu.Lock()
	if job := q.pop(); job != nil {
		q.mu.Unlock()
		return job, true
	}
	ch := make(chan *Job, 1)
	q.waiters = append(q.waiters, ch)
	q.mu.Unlock()

	select {
	case job := <-ch:
		return job, true
	case <-time.After(timeout):
		if q.removeWaiter(ch) {
			return nil, false
		}
		// Submit already claimed ch under q.mu before this call could remove
		// it, which happens-before its send on ch; the job is waiting.
		return <-ch, true
	}
}

// removeWaiter removes ch from q.waiters and reports whether it was still
// there. false means Submit already popped it (and, per the mutex ordering,
// already sent a job on it).
func (q *Queue) removeWaiter(ch chan *Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.waiters {
		if w == ch {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the number of jobs currently queued (not counting parked
// long-poll waiters).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Telemetry returns a snapshot of liveness counters (§4.5.5).
func (q *Queue) Telemetry() Telemetry {
	q.mu.Lock()
	defer q.mu.Unlock()
	t := q.telemetry
	t.QueueLength = len(q.jobs)
	return t
}

// PingExtension records a liveness ping from the capture agent / extension
// service worker.
func (q *Queue) PingExtension() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.telemetry.LastExtensionPing = time.Now()
}

// PingImporter records a liveness ping (poll) from the importer.
func (q *Queue) PingImporter() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.telemetry.LastImporterPoll = time.Now()
}
