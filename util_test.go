package ipmi

import (
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsWithoutExhaustingRetries(t *testing.T) {
	calls := 0
	err := retry(3, 0, func() error {
		calls++
		if calls < 2 {
			return &timeoutErr{}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRetryReturnsTimeoutErrorAfterExhaustingRetries(t *testing.T) {
	calls := 0
	err := retry(2, 0, func() error {
		calls++
		return &timeoutErr{}
	})

	var terr *TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TimeoutError, got %T (%v)", err, err)
	}
	if terr.Retries != 2 {
		t.Fatalf("expected Retries=2, got %d", terr.Retries)
	}
	if calls != 3 {
		t.Fatalf("expected 3 total attempts (1 + 2 retries), got %d", calls)
	}
}

func TestRetryReturnsNonRetryableErrorImmediately(t *testing.T) {
	calls := 0
	sentinel := errors.New("boom")
	err := retry(5, 0, func() error {
		calls++
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("expected sentinel error to propagate unchanged, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt for a non-retryable error, got %d", calls)
	}
}

func TestRetryRetriesSocketFault(t *testing.T) {
	calls := 0
	err := retry(2, 0, func() error {
		calls++
		if calls < 3 {
			return &SendError{Cause: errors.New("connection refused")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryExhaustsSocketFaultAsIs(t *testing.T) {
	sendErr := &SendError{Cause: errors.New("connection refused")}
	err := retry(1, 0, func() error { return sendErr })
	if err != sendErr {
		t.Fatalf("expected the last SendError to propagate unchanged, got %v", err)
	}
}

func TestRetryDelaysBetweenAttempts(t *testing.T) {
	delay := 5 * time.Millisecond
	start := time.Now()
	_ = retry(2, delay, func() error { return &timeoutErr{} })
	if elapsed := time.Since(start); elapsed < 2*delay {
		t.Fatalf("expected at least %s between 3 attempts, took %s", 2*delay, elapsed)
	}
}

func TestActiveClientSequenceWrapsAndRequiresSession(t *testing.T) {
	c := &ActiveClient{}

	// No session yet: sequence stays at zero.
	if s := c.nextSequence(); s != 0 {
		t.Fatalf("expected sequence 0 before session is active, got %d", s)
	}

	c.id = 1
	if s := c.nextSequence(); s != 1 {
		t.Fatalf("expected first active sequence to be 1, got %d", s)
	}
	if s := c.nextSequence(); s != 2 {
		t.Fatalf("expected second active sequence to be 2, got %d", s)
	}

	c.sequence = ^uint32(0)
	if s := c.nextSequence(); s != 1 {
		t.Fatalf("expected sequence to wrap from max uint32 to 1, got %d", s)
	}
}

func TestActiveClientRqSeqWrapsAt64(t *testing.T) {
	c := &ActiveClient{}
	for i := 0; i < 64; i++ {
		c.nextRqSeq()
	}
	if c.rqSeq != 0 {
		t.Fatalf("expected rqSeq to wrap back to 0 after 64 increments, got %d", c.rqSeq)
	}
}
