package honk

import "errors"

// Fetch error kinds. The watcher treats all of them as non-fatal for the run:
// the affected location is reported as unknown for the cycle and polling
// continues. ErrBlocked additionally signals that the upstream is refusing
// automated traffic and the cycle should be skipped rather than hammered.
var (
	// ErrNetwork covers transient transport failures (DNS, timeouts,
	// navigation errors). Worth retrying on the next cycle.
	ErrNetwork = errors.New("network failure")

	// ErrParse means the upstream response no longer matches the expected
	// shape. Retrying within the same cycle is pointless.
	ErrParse = errors.New("unexpected response shape")

	// ErrBlocked means the upstream returned an anti-bot or rate-limit
	// signal (Cloudflare challenge, 403, 429).
	ErrBlocked = errors.New("blocked by upstream")
)

// Kind returns a short classification label for a fetch error, for logs and
// metrics.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrBlocked):
		return "blocked"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "unknown"
	}
}
