package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultNtfyServer is the public ntfy.sh instance.
const DefaultNtfyServer = "https://ntfy.sh"

// NtfyNotifier sends push notifications through an ntfy server. Subscribing
// to the topic in the ntfy app is all the receiving side needs.
type NtfyNotifier struct {
	server string
	topic  string
	client *http.Client
}

// NtfyOption configures an NtfyNotifier.
type NtfyOption func(*NtfyNotifier)

// WithNtfyHTTPClient sets a custom HTTP client.
func WithNtfyHTTPClient(c *http.Client) NtfyOption {
	return func(n *NtfyNotifier) {
		n.client = c
	}
}

// NewNtfyNotifier creates a push notifier for the given server and topic.
func NewNtfyNotifier(server, topic string, opts ...NtfyOption) *NtfyNotifier {
	if server == "" {
		server = DefaultNtfyServer
	}
	n := &NtfyNotifier{
		server: strings.TrimRight(server, "/"),
		topic:  topic,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Kind returns ChannelNtfy.
func (n *NtfyNotifier) Kind() Channel {
	return ChannelNtfy
}

// Send publishes the message to the topic.
func (n *NtfyNotifier) Send(ctx context.Context, title, message string) (string, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		n.server+"/"+n.topic,
		strings.NewReader(message),
	)
	if err != nil {
		return "", fmt.Errorf("creating ntfy request: %w", err)
	}
	req.Header.Set("Title", title)
	req.Header.Set("Priority", "high")
	req.Header.Set("Tags", "parking_space,ski")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending ntfy push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 200))
		if readErr != nil {
			return "", fmt.Errorf("ntfy returned %d (body unreadable)", resp.StatusCode)
		}
		return "", fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, body)
	}

	return fmt.Sprintf("Push sent to %s", n.topic), nil
}
