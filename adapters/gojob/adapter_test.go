package gojob

import (
	"context"
	"testing"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	"github.com/goliatone/go-session/core"
)

func TestRetryPolicyNormalizeAttempt(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, MaxDelay: time.Minute, DeadLetterOnMax: true}

	out := policy.NormalizeAttempt(core.JobNackOptions{Delay: -time.Second, Requeue: true}, 1)
	if out.Delay != 0 {
		t.Fatalf("negative delay must clamp to zero, got %v", out.Delay)
	}
	if !out.Requeue || out.DeadLetter {
		t.Fatalf("attempt under the limit should requeue, got %+v", out)
	}

	out = policy.NormalizeAttempt(core.JobNackOptions{Delay: time.Hour, Requeue: true}, 1)
	if out.Delay != time.Minute {
		t.Fatalf("delay must clamp to the policy max, got %v", out.Delay)
	}

	out = policy.NormalizeAttempt(core.JobNackOptions{Requeue: true}, 3)
	if out.Requeue || !out.DeadLetter {
		t.Fatalf("max attempts must dead-letter, got %+v", out)
	}

	out = policy.NormalizeAttempt(core.JobNackOptions{DeadLetter: true, Requeue: true}, 1)
	if out.Requeue || !out.DeadLetter {
		t.Fatalf("dead-letter must disable requeue, got %+v", out)
	}

	out = (RetryPolicy{}).NormalizeAttempt(core.JobNackOptions{}, 0)
	if !out.Requeue {
		t.Fatalf("a nack with no disposition defaults to requeue, got %+v", out)
	}
}

func TestExecutionMessageRoundTrip(t *testing.T) {
	msg := &core.JobExecutionMessage{
		JobID:          " session.reinitialize ",
		Parameters:     map[string]any{"tenant_id": "abimoveis-003"},
		IdempotencyKey: "session.reinitialize:123",
		DedupPolicy:    "drop",
	}

	mapped := ToExecutionMessage(msg)
	if mapped.JobID != "session.reinitialize" {
		t.Fatalf("job id must be trimmed, got %q", mapped.JobID)
	}
	if mapped.DedupPolicy != job.DeduplicationPolicy("drop") {
		t.Fatalf("unexpected dedup policy %q", mapped.DedupPolicy)
	}

	back := FromExecutionMessage(mapped)
	if back.JobID != "session.reinitialize" || back.IdempotencyKey != msg.IdempotencyKey {
		t.Fatalf("unexpected round trip %+v", back)
	}
	if back.Parameters["tenant_id"] != "abimoveis-003" {
		t.Fatalf("parameters must survive, got %v", back.Parameters)
	}

	msg.Parameters["tenant_id"] = "mutated"
	if mapped.Parameters["tenant_id"] != "abimoveis-003" {
		t.Fatalf("mapped parameters must be isolated from the source map")
	}

	if ToExecutionMessage(nil) != nil || FromExecutionMessage(nil) != nil {
		t.Fatalf("nil messages map to nil")
	}
}

type stubQueueEnqueuer struct {
	messages []*job.ExecutionMessage
}

func (e *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	e.messages = append(e.messages, msg)
	return nil
}

func TestEnqueuerAdapter(t *testing.T) {
	inner := &stubQueueEnqueuer{}
	adapter := NewEnqueuerAdapter(inner)

	err := adapter.Enqueue(context.Background(), &core.JobExecutionMessage{
		JobID:          core.JobIDSessionRefresh,
		IdempotencyKey: "session.refresh:1",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(inner.messages) != 1 || inner.messages[0].JobID != core.JobIDSessionRefresh {
		t.Fatalf("unexpected enqueued messages %+v", inner.messages)
	}

	if err := adapter.Enqueue(context.Background(), nil); err == nil {
		t.Fatalf("nil message must be rejected")
	}
	if err := NewEnqueuerAdapter(nil).Enqueue(context.Background(), &core.JobExecutionMessage{}); err == nil {
		t.Fatalf("missing enqueuer must be rejected")
	}
}

type stubDelivery struct {
	message *job.ExecutionMessage
	acked   bool
	nacks   []queue.NackOptions
}

func (d *stubDelivery) Message() *job.ExecutionMessage { return d.message }

func (d *stubDelivery) Ack(context.Context) error {
	d.acked = true
	return nil
}

func (d *stubDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	d.nacks = append(d.nacks, opts)
	return nil
}

func TestDeliveryAdapter_NackAppliesPolicy(t *testing.T) {
	inner := &stubDelivery{message: &job.ExecutionMessage{JobID: core.JobIDSessionReinitialize}}
	adapter := NewDeliveryAdapter(inner, RetryPolicy{MaxAttempts: 2, DeadLetterOnMax: true})

	if got := adapter.Message(); got == nil || got.JobID != core.JobIDSessionReinitialize {
		t.Fatalf("unexpected delivery message %+v", got)
	}

	if err := adapter.NackForAttempt(context.Background(), core.JobNackOptions{Requeue: true}, 2); err != nil {
		t.Fatalf("nack: %v", err)
	}
	if len(inner.nacks) != 1 {
		t.Fatalf("expected one nack, got %d", len(inner.nacks))
	}
	if inner.nacks[0].Requeue || !inner.nacks[0].DeadLetter {
		t.Fatalf("policy must dead-letter at max attempts, got %+v", inner.nacks[0])
	}

	if err := adapter.Ack(context.Background()); err != nil || !inner.acked {
		t.Fatalf("ack must delegate, err=%v acked=%v", err, inner.acked)
	}
}

type stubWorkerHook struct {
	events map[string]core.JobWorkerEvent
}

func (h *stubWorkerHook) record(name string, event core.JobWorkerEvent) {
	if h.events == nil {
		h.events = map[string]core.JobWorkerEvent{}
	}
	h.events[name] = event
}

func (h *stubWorkerHook) OnStart(_ context.Context, event core.JobWorkerEvent) {
	h.record("start", event)
}

func (h *stubWorkerHook) OnSuccess(_ context.Context, event core.JobWorkerEvent) {
	h.record("success", event)
}

func (h *stubWorkerHook) OnFailure(_ context.Context, event core.JobWorkerEvent) {
	h.record("failure", event)
}

func (h *stubWorkerHook) OnRetry(_ context.Context, event core.JobWorkerEvent) {
	h.record("retry", event)
}

func TestWorkerHookAdapter_ForwardsEvents(t *testing.T) {
	hook := &stubWorkerHook{}
	adapter := NewWorkerHookAdapter(hook)

	adapter.OnFailure(context.Background(), worker.Event{
		Message: &job.ExecutionMessage{JobID: core.JobIDSessionReinitialize},
		Attempt: 2,
		Err:     context.DeadlineExceeded,
	})
	event, ok := hook.events["failure"]
	if !ok {
		t.Fatalf("failure event not forwarded")
	}
	if event.Message == nil || event.Message.JobID != core.JobIDSessionReinitialize {
		t.Fatalf("unexpected forwarded message %+v", event.Message)
	}
	if event.Attempt != 2 || event.Err != context.DeadlineExceeded {
		t.Fatalf("unexpected forwarded event %+v", event)
	}

	adapter.OnStart(context.Background(), worker.Event{
		Delivery: &stubDelivery{message: &job.ExecutionMessage{JobID: core.JobIDSessionRefresh}},
	})
	if got := hook.events["start"].Message; got == nil || got.JobID != core.JobIDSessionRefresh {
		t.Fatalf("event message must fall back to the delivery, got %+v", got)
	}

	// A missing hook drops events instead of panicking.
	NewWorkerHookAdapter(nil).OnRetry(context.Background(), worker.Event{})
}
