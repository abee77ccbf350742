package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/develoddy/fulfillment/pkg/retryqueue"
	syncsvc "github.com/develoddy/fulfillment/pkg/sync"
)

type fakeQueue struct {
	due      []*retryqueue.Job
	claimErr error
	outcomes map[string]bool
	details  map[string]string
}

func newFakeQueue(jobs ...*retryqueue.Job) *fakeQueue {
	return &fakeQueue{due: jobs, outcomes: map[string]bool{}, details: map[string]string{}}
}

func (f *fakeQueue) ClaimDue(_ context.Context, limit int) ([]*retryqueue.Job, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if len(f.due) > limit {
		claimed := f.due[:limit]
		f.due = f.due[limit:]
		return claimed, nil
	}
	claimed := f.due
	f.due = nil
	return claimed, nil
}

func (f *fakeQueue) RecordOutcome(_ context.Context, jobID string, success bool, detail string) error {
	f.outcomes[jobID] = success
	f.details[jobID] = detail
	return nil
}

type fakeSubmitter struct {
	results map[string]*syncsvc.Result
	errs    map[string]error
	panicOn string
	calls   []string
}

func (f *fakeSubmitter) Submit(_ context.Context, orderID string) (*syncsvc.Result, error) {
	f.calls = append(f.calls, orderID)
	if orderID == f.panicOn {
		panic("mapping blew up")
	}
	if err := f.errs[orderID]; err != nil {
		return nil, err
	}
	return f.results[orderID], nil
}

func TestDrainRecordsOutcomes(t *testing.T) {
	queue := newFakeQueue(
		&retryqueue.Job{ID: "job-ok", OrderID: "order-ok"},
		&retryqueue.Job{ID: "job-synced", OrderID: "order-synced"},
		&retryqueue.Job{ID: "job-bad", OrderID: "order-bad"},
	)
	submitter := &fakeSubmitter{
		results: map[string]*syncsvc.Result{
			"order-ok":     {Code: syncsvc.CodeOK, OrderID: "order-ok"},
			"order-synced": {Code: syncsvc.CodeAlreadySynced, OrderID: "order-synced"},
			"order-bad":    {Code: syncsvc.CodeProviderError, OrderID: "order-bad", Message: "upstream 503"},
		},
	}
	loop := New(queue, submitter, 0, 10)

	loop.Drain(context.Background())

	if !queue.outcomes["job-ok"] {
		t.Fatal("OK result must record success")
	}
	if !queue.outcomes["job-synced"] {
		t.Fatal("ALREADY_SYNCED must count as success, not another attempt")
	}
	if queue.outcomes["job-bad"] {
		t.Fatal("provider error must record failure")
	}
	if queue.details["job-bad"] == "" {
		t.Fatal("failure detail must be recorded")
	}
}

func TestDrainSubmitterError(t *testing.T) {
	queue := newFakeQueue(&retryqueue.Job{ID: "job-1", OrderID: "order-1"})
	submitter := &fakeSubmitter{errs: map[string]error{"order-1": errors.New("store unavailable")}}
	loop := New(queue, submitter, 0, 10)

	loop.Drain(context.Background())

	if success, ok := queue.outcomes["job-1"]; !ok || success {
		t.Fatalf("submitter error must record failed outcome, got ok=%v success=%v", ok, success)
	}
}

func TestDrainSurvivesPanic(t *testing.T) {
	queue := newFakeQueue(
		&retryqueue.Job{ID: "job-panic", OrderID: "order-panic"},
		&retryqueue.Job{ID: "job-next", OrderID: "order-next"},
	)
	submitter := &fakeSubmitter{
		panicOn: "order-panic",
		results: map[string]*syncsvc.Result{"order-next": {Code: syncsvc.CodeOK}},
	}
	loop := New(queue, submitter, 0, 10)

	loop.Drain(context.Background())

	if success, ok := queue.outcomes["job-panic"]; !ok || success {
		t.Fatal("panicking attempt must still record a failed outcome")
	}
	if !queue.outcomes["job-next"] {
		t.Fatal("panic in one job must not stop the batch")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	queue := newFakeQueue()
	loop := New(queue, &fakeSubmitter{}, 5*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after context cancellation")
	}
}

func TestDrainHonorsBatchSize(t *testing.T) {
	queue := newFakeQueue(
		&retryqueue.Job{ID: "j1", OrderID: "o1"},
		&retryqueue.Job{ID: "j2", OrderID: "o2"},
		&retryqueue.Job{ID: "j3", OrderID: "o3"},
	)
	submitter := &fakeSubmitter{results: map[string]*syncsvc.Result{
		"o1": {Code: syncsvc.CodeOK}, "o2": {Code: syncsvc.CodeOK}, "o3": {Code: syncsvc.CodeOK},
	}}
	loop := New(queue, submitter, 0, 2)

	loop.Drain(context.Background())
	if len(submitter.calls) != 2 {
		t.Fatalf("batch of 2 expected, got %d submissions", len(submitter.calls))
	}

	loop.Drain(context.Background())
	if len(submitter.calls) != 3 {
		t.Fatalf("second pass should pick up the remainder, got %d", len(submitter.calls))
	}
}
