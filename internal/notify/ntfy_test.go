package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNtfyNotifier_Send(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
		errMsg     string
	}{
		{name: "accepted", statusCode: http.StatusOK},
		{name: "server error", statusCode: http.StatusInternalServerError, wantErr: true, errMsg: "ntfy returned 500"},
		{name: "rate limited", statusCode: http.StatusTooManyRequests, wantErr: true, errMsg: "ntfy returned 429"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var (
				gotPath    string
				gotTitle   string
				gotBody    string
				gotHeaders http.Header
			)

			srv := httptest.NewServer(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, http.MethodPost, r.Method)
					gotPath = r.URL.Path
					gotTitle = r.Header.Get("Title")
					gotHeaders = r.Header.Clone()
					body, err := io.ReadAll(r.Body)
					assert.NoError(t, err)
					gotBody = string(body)
					w.WriteHeader(tt.statusCode)
				}),
			)
			defer srv.Close()

			n := NewNtfyNotifier(srv.URL, "my-parking-topic")
			detail, err := n.Send(context.Background(), "Parking Available!", "PALISADES 2026-02-22: Free (FREE)")

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "Push sent to my-parking-topic", detail)
			assert.Equal(t, "/my-parking-topic", gotPath)
			assert.Equal(t, "Parking Available!", gotTitle)
			assert.Equal(t, "high", gotHeaders.Get("Priority"))
			assert.Equal(t, "parking_space,ski", gotHeaders.Get("Tags"))
			assert.Equal(t, "PALISADES 2026-02-22: Free (FREE)", gotBody)
		})
	}
}

func TestNewNtfyNotifier_DefaultServer(t *testing.T) {
	t.Parallel()

	n := NewNtfyNotifier("", "topic")
	assert.Equal(t, DefaultNtfyServer, n.server)

	// Trailing slashes collapse so the topic path stays clean.
	n = NewNtfyNotifier("https://ntfy.example.com/", "topic")
	assert.Equal(t, "https://ntfy.example.com", n.server)
}

func TestNtfyNotifier_Kind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ChannelNtfy, NewNtfyNotifier("", "topic").Kind())
}
