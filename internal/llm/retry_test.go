package llm

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"testing"
	"time"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &HTTPError{StatusCode: 429}, true},
		{"server error", &HTTPError{StatusCode: 503}, true},
		{"wrapped", fmt.Errorf("embed: %w", &HTTPError{StatusCode: 500}), true},
		{"bad request", &HTTPError{StatusCode: 400}, false},
		{"plain", fmt.Errorf("boom"), false},
		{"connection closed", &url.Error{Op: "Post", URL: "http://x", Err: io.EOF}, true},
		{"unexpected eof", fmt.Errorf("read: %w", io.ErrUnexpectedEOF), true},
		{"dial refused", &net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("connection refused")}, true},
		{"cancelled", &url.Error{Op: "Post", URL: "http://x", Err: context.Canceled}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt := range 8 {
		d := Backoff(attempt)
		base := time.Duration(1<<uint(attempt)) * time.Second
		if base > 30*time.Second {
			base = 30 * time.Second
		}
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: backoff %v outside [%v, %v)", attempt, d, base, base+base/2)
		}
	}
}
