package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsJobs(t *testing.T) {
	p := NewPool(nil, 2, 4, 0)
	p.Start()
	defer p.Stop()

	var ran atomic.Int32
	done := make(chan error, 3)
	for i := 0; i < 3; i++ {
		err := p.Go(context.Background(), "test", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}, func(err error) { done <- err })
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("unexpected job error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	if ran.Load() != 3 {
		t.Fatalf("expected 3 runs, got %d", ran.Load())
	}
}

func TestPoolCancelledJobContext(t *testing.T) {
	p := NewPool(nil, 1, 1, 0)
	p.Start()
	defer p.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	done := make(chan error, 1)
	err := p.Go(ctx, "slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, func(err error) { done <- err })
	if err != nil {
		t.Fatal(err)
	}

	<-started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job did not observe cancellation")
	}
}

func TestPoolRecoversPanics(t *testing.T) {
	p := NewPool(nil, 1, 1, 0)
	p.Start()
	defer p.Stop()

	done := make(chan error, 1)
	_ = p.Go(context.Background(), "boom", func(ctx context.Context) error {
		panic("boom")
	}, func(err error) { done <- err })

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error from panicking job")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestSubmitAfterStop(t *testing.T) {
	p := NewPool(nil, 1, 1, 0)
	p.Start()
	p.Stop()
	err := p.Go(context.Background(), "late", func(ctx context.Context) error { return nil }, nil)
	if !errors.Is(err, ErrPoolStopped) {
		t.Fatalf("expected ErrPoolStopped, got %v", err)
	}
}

func TestStopCancelsRunningJob(t *testing.T) {
	p := NewPool(nil, 1, 1, 0)
	p.Start()

	started := make(chan struct{})
	done := make(chan error, 1)
	_ = p.Go(context.Background(), "long", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, func(err error) { done <- err })

	<-started
	p.Stop()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected running job to be cancelled by Stop")
		}
	default:
		t.Fatal("Stop returned before the running job finished")
	}
}
