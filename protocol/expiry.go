package protocol

import "time"

// Default TTLs by message type. Row changes matter only while caches are
// warm; session summaries are informational and live longer.
var defaultTTLs = map[string]time.Duration{
	TypeProductChanged:  5 * time.Minute,
	TypeCustomerChanged: 5 * time.Minute,

	TypeSessionSaved:     30 * time.Minute,
	TypeSessionDiscarded: 30 * time.Minute,
}

// FallbackTTL is used when no specific TTL is configured.
const FallbackTTL = 10 * time.Minute

// DefaultTTLFor returns the default TTL for a message type.
func DefaultTTLFor(msgType string) time.Duration {
	if ttl, ok := defaultTTLs[msgType]; ok {
		return ttl
	}
	return FallbackTTL
}

// IsExpired returns true if the envelope has passed its expiry time.
func IsExpired(env *Envelope) bool {
	return expired(env.ExpiresAt)
}

// IsExpiredHeader checks expiry using only the raw header.
func IsExpiredHeader(hdr *RawHeader) bool {
	return expired(hdr.ExpiresAt)
}

func expired(at time.Time) bool {
	if at.IsZero() {
		return false
	}
	return time.Now().UTC().After(at)
}
