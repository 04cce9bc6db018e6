package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestExponentialBackoff(t *testing.T) {
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, maxBackoff}
	for attempt, w := range want {
		if got := exponentialBackoff(attempt); got != w {
			t.Errorf("exponentialBackoff(%d) = %v, want %v", attempt, got, w)
		}
	}
	for _, attempt := range []int{-1, 12, 64} {
		got := exponentialBackoff(attempt)
		if got < time.Second || got > maxBackoff {
			t.Errorf("exponentialBackoff(%d) = %v, want within [1s, %v]", attempt, got, maxBackoff)
		}
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{amqp091.ErrClosed, true},
		{fmt.Errorf("publish message: %w", amqp091.ErrClosed), true},
		{errChannelClosed, true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("read: unexpected EOF"), true},
		{errors.New("write: broken pipe"), true},
		{errors.New("PRECONDITION_FAILED - inequivalent arg 'durable'"), false},
	}
	for _, tt := range tests {
		if got := isConnectionError(tt.err); got != tt.want {
			t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestCircuitBreaker(t *testing.T) {
	tests := []struct {
		name      string
		state     int32
		failures  int64
		lastFail  time.Duration
		act       func(c *Client)
		wantState int32
		wantOpen  bool
	}{
		{
			name:      "closed by default",
			act:       func(*Client) {},
			wantState: StateClosed,
		},
		{
			name: "opens after repeated failures",
			act: func(c *Client) {
				for i := 0; i < maxFailures; i++ {
					c.recordFailure()
				}
			},
			wantState: StateOpen,
			wantOpen:  true,
		},
		{
			name:      "stays closed below the threshold",
			failures:  maxFailures - 2,
			act:       func(c *Client) { c.recordFailure() },
			wantState: StateClosed,
		},
		{
			name:      "open within timeout",
			state:     StateOpen,
			lastFail:  time.Second,
			act:       func(*Client) {},
			wantState: StateOpen,
			wantOpen:  true,
		},
		{
			name:      "half-open after timeout",
			state:     StateOpen,
			lastFail:  openTimeout + time.Second,
			act:       func(*Client) {},
			wantState: StateHalfOpen,
		},
		{
			name:      "half-open failure reopens",
			state:     StateHalfOpen,
			act:       func(c *Client) { c.recordFailure() },
			wantState: StateOpen,
			wantOpen:  true,
		},
		{
			name:      "success closes",
			state:     StateOpen,
			failures:  maxFailures,
			act:       func(c *Client) { c.recordSuccess() },
			wantState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{state: tt.state, failureCount: tt.failures}
			if tt.lastFail > 0 {
				c.lastFailure = time.Now().Add(-tt.lastFail)
			}

			tt.act(c)

			if got := c.isCircuitOpen(); got != tt.wantOpen {
				t.Errorf("isCircuitOpen() = %v, want %v", got, tt.wantOpen)
			}
			if c.state != tt.wantState {
				t.Errorf("state = %d, want %d", c.state, tt.wantState)
			}
		})
	}
}

func TestPublishLedgerSync_WithoutBroker(t *testing.T) {
	t.Run("open circuit", func(t *testing.T) {
		c := &Client{state: StateOpen, lastFailure: time.Now()}
		err := c.PublishLedgerSync(context.Background(), "ana", 1)
		if err == nil || !strings.Contains(err.Error(), "circuit breaker is open") {
			t.Errorf("PublishLedgerSync() error = %v, want circuit breaker error", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := &Client{}
		if err := c.PublishLedgerSync(ctx, "ana", 1); !errors.Is(err, context.Canceled) {
			t.Errorf("PublishLedgerSync() error = %v, want %v", err, context.Canceled)
		}
	})
}

func TestLedgerSyncMessage(t *testing.T) {
	msg := NewLedgerSyncMessage("ana", 7)
	if msg.UserID != "ana" || msg.Revision != 7 {
		t.Errorf("NewLedgerSyncMessage() = %+v, want ana at revision 7", msg)
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Errorf("NewLedgerSyncMessage() Timestamp = %v, want now", msg.Timestamp)
	}

	msg.Timestamp = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	if !strings.Contains(string(data), `"user_id":"ana"`) {
		t.Errorf("ToJSON() = %s, want user_id field", data)
	}

	parsed, err := LedgerSyncMessageFromJSON(data)
	if err != nil {
		t.Fatalf("LedgerSyncMessageFromJSON() error = %v", err)
	}
	if parsed.UserID != msg.UserID || parsed.Revision != msg.Revision || !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("LedgerSyncMessageFromJSON() = %+v, want %+v", parsed, msg)
	}

	if _, err := LedgerSyncMessageFromJSON([]byte(`{"user_id":"ana","revision":"two"}`)); err == nil {
		t.Error("LedgerSyncMessageFromJSON() should reject a string revision")
	}
}
