package domain

import "time"

// EndpointKind represents the transport type of a provider endpoint.
type EndpointKind string

const (
	EndpointHTTP      EndpointKind = "HTTP"
	EndpointWebSocket EndpointKind = "WEBSOCKET"
	EndpointGRPC      EndpointKind = "GRPC"
)

// String returns the string representation of EndpointKind.
func (k EndpointKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a valid value.
func (k EndpointKind) IsValid() bool {
	return k == EndpointHTTP || k == EndpointWebSocket || k == EndpointGRPC
}

// ProviderEndpoint represents one RPC/stream provider with its quota state.
type ProviderEndpoint struct {
	Name          string       // provider label for logs and metrics
	URL           string       // endpoint URL
	Kind          EndpointKind // HTTP | WEBSOCKET | GRPC
	Weight        int          // relative traffic share
	RateLimit     float64      // requests per second
	Priority      int          // lower = preferred
	ConsecErrors  int          // consecutive failure counter
	DisabledUntil time.Time    // zero when enabled
	LastRequestAt time.Time    // last dispatch time, for rate gating
	CurrentWeight int          // smooth weighted round-robin counter
}

// Eligible reports whether the endpoint may serve a request at now.
// Disabled endpoints and endpoints inside their per-request interval
// are skipped.
func (e *ProviderEndpoint) Eligible(now time.Time) bool {
	if now.Before(e.DisabledUntil) {
		return false
	}
	if e.RateLimit <= 0 {
		return true
	}
	interval := time.Duration(float64(time.Second) / e.RateLimit)
	return !now.Before(e.LastRequestAt.Add(interval))
}
