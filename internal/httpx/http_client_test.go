package httpx

import (
	"testing"
	"time"
)

func TestExternalHTTPClientDefaults(t *testing.T) {
	c := ExternalHTTPClient()
	if c == nil {
		t.Fatal("ExternalHTTPClient must not be nil")
	}
	if c != externalHTTPClient {
		t.Fatal("ExternalHTTPClient should return the shared client")
	}
	if c.Timeout != defaultExternalHTTPTimeout {
		t.Fatalf("timeout = %s, want %s", c.Timeout, defaultExternalHTTPTimeout)
	}
}

func TestConfigureExternalHTTPClient(t *testing.T) {
	original := externalHTTPClient.Timeout
	t.Cleanup(func() { externalHTTPClient.Timeout = original })

	tests := []struct {
		seconds int
		want    time.Duration
	}{
		{seconds: 0, want: defaultExternalHTTPTimeout},
		{seconds: -5, want: defaultExternalHTTPTimeout},
		{seconds: 45, want: 45 * time.Second},
	}
	for _, tt := range tests {
		got := ConfigureExternalHTTPClient(tt.seconds)
		if got != tt.want {
			t.Fatalf("ConfigureExternalHTTPClient(%d) = %s, want %s", tt.seconds, got, tt.want)
		}
		if externalHTTPClient.Timeout != tt.want {
			t.Fatalf("client timeout after %d = %s, want %s", tt.seconds, externalHTTPClient.Timeout, tt.want)
		}
	}
}
