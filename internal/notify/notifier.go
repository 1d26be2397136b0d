// Package notify defines the notification channel interface and its
// implementations: ntfy push, SMTP email, SMS via carrier email gateway, and
// local desktop alerts.
package notify

import (
	"context"
	"fmt"
)

// Channel identifies a notification transport.
type Channel string

// Channel constants, matching the CLI --notify values.
const (
	ChannelDesktop Channel = "desktop"
	ChannelNtfy    Channel = "ntfy"
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
)

// ParseChannels validates CLI channel names, preserving order and dropping
// duplicates.
func ParseChannels(names []string) ([]Channel, error) {
	seen := make(map[Channel]struct{}, len(names))
	channels := make([]Channel, 0, len(names))
	for _, name := range names {
		ch := Channel(name)
		switch ch {
		case ChannelDesktop, ChannelNtfy, ChannelEmail, ChannelSMS:
		default:
			return nil, fmt.Errorf("unknown notify channel %q (want desktop, ntfy, email, or sms)", name)
		}
		if _, ok := seen[ch]; ok {
			continue
		}
		seen[ch] = struct{}{}
		channels = append(channels, ch)
	}
	return channels, nil
}

// Notifier is one configured delivery channel. Send attempts delivery once
// and returns a human-readable outcome detail for the console report.
type Notifier interface {
	Kind() Channel
	Send(ctx context.Context, title, message string) (string, error)
}

// Result is the outcome of one channel's delivery attempt.
type Result struct {
	Channel Channel
	Detail  string
	Err     error
}

// Dispatch attempts delivery on every notifier in order. Channels are
// independent: a failure on one never prevents attempts on the others, and
// no attempt is retried. Results come back in notifier order.
func Dispatch(ctx context.Context, notifiers []Notifier, title, message string) []Result {
	results := make([]Result, 0, len(notifiers))
	for _, n := range notifiers {
		detail, err := n.Send(ctx, title, message)
		results = append(results, Result{Channel: n.Kind(), Detail: detail, Err: err})
	}
	return results
}
