package broker

import (
	"sync"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	a := q.Submit([]byte("A"))
	b := q.Submit([]byte("B"))
	c := q.Submit([]byte("C"))

	var got []string
	for i := 0; i < 3; i++ {
		job, ok := q.Wait(time.Second)
		if !ok {
			t.Fatalf("expected a job, got timeout")
		}
		got = append(got, string(job.Payload))
	}
	if got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Fatalf("expected FIFO order A,B,C got %v", got)
	}
	_ = a
	_ = b
	_ = c
}

func TestQueueWaitBeforeSubmitStillFIFO(t *testing.T) {
	q := NewQueue()
	type result struct {
		idx     int
		payload string
	}
	results := make(chan result, 2)

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		i := i
		go func() {
			defer wg.Done()
			job, ok := q.Wait(2 * time.Second)
			if ok {
				results <- result{idx: i, payload: string(job.Payload)}
			}
		}()
	}
	// Give the waiters time to park.
	time.Sleep(50 * time.Millisecond)
	q.Submit([]byte("first"))
	q.Submit([]byte("second"))
	wg.Wait()
	close(results)

	seen := map[string]bool{}
	for r := range results {
		seen[r.payload] = true
	}
	if !seen["first"] || !seen["second"] {
		t.Fatalf("both jobs should have been delivered exactly once, got %v", seen)
	}
}

func TestQueueWaitTimeout(t *testing.T) {
	q := NewQueue()
	start := time.Now()
	job, ok := q.Wait(30 * time.Millisecond)
	if ok || job != nil {
		t.Fatalf("expected timeout with no job")
	}
	if time.Since(start) < 25*time.Millisecond {
		t.Fatalf("returned before timeout elapsed")
	}
}

func TestQueueAtMostOnceDelivery(t *testing.T) {
	q := NewQueue()
	q.Submit([]byte("only"))

	const pollers = 8
	delivered := 0
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(pollers)
	for i := 0; i < pollers; i++ {
		go func() {
			defer wg.Done()
			job, ok := q.Wait(200 * time.Millisecond)
			if ok && job != nil {
				mu.Lock()
				delivered++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if delivered != 1 {
		t.Fatalf("expected exactly one poller to receive the job, got %d", delivered)
	}
}

// TestQueueSubmitWinsRaceAgainstExpiredWaiter reproduces the timeout/Submit
// race directly: it registers a parked waiter the way Wait does, calls
// Submit, and has a goroutine call removeWaiter a few milliseconds later (as
// Wait's timeout branch would). Submit claims the waiter first, so
// removeWaiter must report it already gone and the job must be sitting in
// the waiter's channel rather than dropped. This pins down the ordering
// removeWaiter and Submit rely on: Submit's send happens before removeWaiter
// can report the waiter gone.
func TestQueueSubmitWinsRaceAgainstExpiredWaiter(t *testing.T) {
	q := NewQueue()
	ch := make(chan *Job, 1)
	q.mu.Lock()
	q.waiters = append(q.waiters, ch)
	q.mu.Unlock()

	removed := make(chan bool, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Give Submit a head start so it claims the waiter first, mirroring
		// the window where Wait's select already chose the timeout branch.
		time.Sleep(5 * time.Millisecond)
		removed <- q.removeWaiter(ch)
	}()

	job := q.Submit([]byte("payload"))
	wg.Wait()

	if <-removed {
		t.Fatalf("removeWaiter should report the waiter already claimed by Submit")
	}

	select {
	case delivered := <-ch:
		if delivered.ID != job.ID {
			t.Fatalf("expected delivered job %s, got %s", job.ID, delivered.ID)
		}
	default:
		t.Fatal("job should have been sent to the waiter's channel, not lost")
	}
}

func TestQueueLenAndTelemetry(t *testing.T) {
	q := NewQueue()
	if q.Len() != 0 {
		t.Fatalf("expected empty queue")
	}
	q.Submit([]byte("x"))
	q.Submit([]byte("y"))
	if q.Len() != 2 {
		t.Fatalf("expected queue length 2, got %d", q.Len())
	}
	q.PingExtension()
	q.PingImporter()
	tel := q.Telemetry()
	if tel.LastExtensionPing.IsZero() || tel.LastImporterPoll.IsZero() {
		t.Fatalf("expected telemetry pings recorded")
	}
	if tel.QueueLength != 2 {
		t.Fatalf("expected telemetry queueLength 2, got %d", tel.QueueLength)
	}
}
