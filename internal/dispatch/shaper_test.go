package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rizzard-app/rizzard/internal/reply"
)

type recordingSink struct {
	mu   sync.Mutex
	sent []string
	fail error
}

func (r *recordingSink) Send(_ context.Context, text string) error {
	if r.fail != nil {
		return r.fail
	}
	r.mu.Lock()
	r.sent = append(r.sent, text)
	r.mu.Unlock()
	return nil
}

func (r *recordingSink) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	copy(out, r.sent)
	return out
}

func TestShaper(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("Structured Reply Sends Comment Then Openers", func(t *testing.T) {
		t.Parallel()

		s := NewShaper(clockwork.NewFakeClock(), 0, 0)
		sink := &recordingSink{}
		r := reply.Reply{
			Kind:    reply.KindStructured,
			Comment: "Try this:",
			Openers: []string{"a", "b", "c"},
		}

		if err := s.Shape(ctx, sink, r); err != nil {
			t.Fatalf("Shape() error = %v", err)
		}

		want := []string{"Try this:", "a", "b", "c"}
		got := sink.messages()
		if len(got) != len(want) {
			t.Fatalf("sent %d messages, want %d: %v", len(got), len(want), got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("message[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("Plain Reply Is One Message", func(t *testing.T) {
		t.Parallel()

		s := NewShaper(clockwork.NewFakeClock(), 0, 0)
		sink := &recordingSink{}
		r := reply.Reply{Kind: reply.KindPlain, Text: "just a plain reply"}

		if err := s.Shape(ctx, sink, r); err != nil {
			t.Fatalf("Shape() error = %v", err)
		}
		got := sink.messages()
		if len(got) != 1 || got[0] != "just a plain reply" {
			t.Errorf("sent = %v, want single plain message", got)
		}
	})

	t.Run("Openers Without Comment", func(t *testing.T) {
		t.Parallel()

		s := NewShaper(clockwork.NewFakeClock(), 0, 0)
		sink := &recordingSink{}
		r := reply.Reply{Kind: reply.KindStructured, Openers: []string{"a", "b"}}

		if err := s.Shape(ctx, sink, r); err != nil {
			t.Fatalf("Shape() error = %v", err)
		}
		got := sink.messages()
		if len(got) != 2 || got[0] != "a" || got[1] != "b" {
			t.Errorf("sent = %v, want openers only", got)
		}
	})

	t.Run("Sink Error Aborts Remainder", func(t *testing.T) {
		t.Parallel()

		s := NewShaper(clockwork.NewFakeClock(), 0, 0)
		sink := &recordingSink{fail: errors.New("send refused")}
		r := reply.Reply{Kind: reply.KindStructured, Comment: "c", Openers: []string{"a"}}

		if err := s.Shape(ctx, sink, r); err == nil {
			t.Fatal("Shape() error = nil, want sink error")
		}
	})

	t.Run("Pauses Separate Messages", func(t *testing.T) {
		t.Parallel()

		clock := clockwork.NewFakeClock()
		s := NewShaper(clock, 500*time.Millisecond, 200*time.Millisecond)
		sink := &recordingSink{}
		r := reply.Reply{
			Kind:    reply.KindStructured,
			Comment: "comment",
			Openers: []string{"one", "two"},
		}

		done := make(chan error, 1)
		go func() {
			done <- s.Shape(ctx, sink, r)
		}()

		// The comment goes out, then Shape blocks on the comment pause.
		clock.BlockUntil(1)
		if got := sink.messages(); len(got) != 1 || got[0] != "comment" {
			t.Fatalf("before first pause sent = %v, want [comment]", got)
		}
		clock.Advance(500 * time.Millisecond)

		// First opener, then the shorter opener pause.
		clock.BlockUntil(1)
		if got := sink.messages(); len(got) != 2 || got[1] != "one" {
			t.Fatalf("after comment pause sent = %v, want [comment one]", got)
		}
		clock.Advance(200 * time.Millisecond)

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Shape() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Shape() did not finish")
		}

		if got := sink.messages(); len(got) != 3 || got[2] != "two" {
			t.Errorf("final sent = %v, want [comment one two]", got)
		}
	})
}
