package dispatch

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rizzard-app/rizzard/internal/reply"
)

// Sink receives the shaped messages in order.
type Sink interface {
	Send(ctx context.Context, text string) error
}

// Shaper turns a parsed model reply into chat messages. Structured replies
// become the comment followed by each opener as its own message, with short
// pauses in between so the sequence reads like typing.
type Shaper struct {
	clock        clockwork.Clock
	commentPause time.Duration
	openerPause  time.Duration
}

// NewShaper creates a shaper with the given inter-message pauses. Zero pauses
// send everything back to back.
func NewShaper(clock clockwork.Clock, commentPause, openerPause time.Duration) *Shaper {
	return &Shaper{clock: clock, commentPause: commentPause, openerPause: openerPause}
}

// Shape delivers r through sink. A plain reply is one message; a structured
// reply is the comment, a pause, then the openers with shorter pauses. The
// first sink error aborts the remainder.
func (s *Shaper) Shape(ctx context.Context, sink Sink, r reply.Reply) error {
	if r.Kind == reply.KindPlain {
		return sink.Send(ctx, r.Text)
	}

	if r.Comment != "" {
		if err := sink.Send(ctx, r.Comment); err != nil {
			return err
		}
		if len(r.Openers) > 0 {
			if err := s.pause(ctx, s.commentPause); err != nil {
				return err
			}
		}
	}

	for i, opener := range r.Openers {
		if i > 0 {
			if err := s.pause(ctx, s.openerPause); err != nil {
				return err
			}
		}
		if err := sink.Send(ctx, opener); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shaper) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := s.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
