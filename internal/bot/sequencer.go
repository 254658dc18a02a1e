package bot

import (
	"context"
	"time"

	"github.com/castilh0s-archives/chatbot-example/internal/channels/messenger"
)

// DefaultInterval is the pacing gap between consecutive outbound sends. Sends
// fire asynchronously and the platform does not order them, so each fragment
// is delayed by its position to preserve read order.
const DefaultInterval = 1100 * time.Millisecond

// ScheduledSend pairs an outbound send with the delay it should fire at,
// relative to the start of the plan.
type ScheduledSend struct {
	Delay time.Duration
	Send  OutboundSend
}

// Dispatcher delivers a single outbound send to the chat transport.
// Implementations log failures and never propagate them into the pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipientID string, send OutboundSend) error
}

// Plan turns an ordered fragment sequence into a time-ordered list of sends.
//
// Consecutive card fragments are merged into one generic template. Every other
// fragment is scheduled at its original index times interval; a merged card
// run is scheduled at one interval before the index that flushed it, so after
// a run longer than one card the gap to the next send comes up one interval
// short. That pacing carries over from the first revision of this bot and is
// kept as-is.
//
// Plan is pure: it never talks to the transport, so the merge and pacing rules
// are testable without timers.
func Plan(fragments []Fragment, interval time.Duration) []ScheduledSend {
	var plan []ScheduledSend
	var run []CardFragment
	prevCard := false

	for i, f := range fragments {
		isCard := f.Kind == FragmentCard
		last := i == len(fragments)-1

		switch {
		case prevCard && (!isCard || last):
			if isCard {
				run = append(run, *f.Card)
			}
			plan = append(plan, ScheduledSend{
				Delay: flushDelay(i, interval),
				Send:  OutboundSend{Kind: SendGenericTemplate, Elements: elementsOf(run)},
			})
			run = nil
			if !isCard {
				plan = append(plan, fragmentSends(f, time.Duration(i)*interval)...)
			}
		case isCard && last:
			run = append(run, *f.Card)
			plan = append(plan, ScheduledSend{
				Delay: flushDelay(i, interval),
				Send:  OutboundSend{Kind: SendGenericTemplate, Elements: elementsOf(run)},
			})
			run = nil
		case isCard:
			run = append(run, *f.Card)
		default:
			plan = append(plan, fragmentSends(f, time.Duration(i)*interval)...)
		}

		prevCard = isCard
	}

	return plan
}

// flushDelay is (flushIndex-1)*interval, clamped at zero for a card that is
// the very first fragment.
func flushDelay(flushIndex int, interval time.Duration) time.Duration {
	if flushIndex <= 0 {
		return 0
	}
	return time.Duration(flushIndex-1) * interval
}

// fragmentSends resolves one non-card fragment into its sends, all scheduled
// at the fragment's slot. Empty text lines produce nothing.
func fragmentSends(f Fragment, delay time.Duration) []ScheduledSend {
	switch f.Kind {
	case FragmentText:
		if f.Text == nil {
			return nil
		}
		var sends []ScheduledSend
		for _, line := range f.Text.Lines {
			if line == "" {
				continue
			}
			sends = append(sends, ScheduledSend{Delay: delay, Send: TextSend(line)})
		}
		return sends
	case FragmentQuickReplies:
		if f.QuickReplies == nil {
			return nil
		}
		return []ScheduledSend{{
			Delay: delay,
			Send:  QuickReplySend(f.QuickReplies.Title, f.QuickReplies.Options),
		}}
	case FragmentImage:
		if f.Image == nil {
			return nil
		}
		return []ScheduledSend{{
			Delay: delay,
			Send:  OutboundSend{Kind: SendImage, ImageURL: f.Image.URI},
		}}
	default:
		return nil
	}
}

func elementsOf(run []CardFragment) []messenger.Element {
	elements := make([]messenger.Element, 0, len(run))
	for _, card := range run {
		elements = append(elements, cardElement(card))
	}
	return elements
}
