// Package token issues and validates the opaque access tokens behind
// signature and payment links.
//
// Expiration uses a strict comparison: a token is valid while now is strictly
// before expiresAt and invalid at the exact expiration instant.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mrand "math/rand"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maison-solution/rental-scheduler-service/internal/monitoring"
)

// MinBits is the smallest accepted entropy for a generated token.
const MinBits = 128

// Generate returns a hex-encoded random token of at least bits entropy.
// When the secure source is unavailable it falls back to a process-seeded
// generator; the event is logged and counted as degraded security posture.
func Generate(bits int) string {
	if bits < MinBits {
		bits = MinBits
	}
	buf := make([]byte, bits/8)
	if _, err := rand.Read(buf); err != nil {
		log.Warn().Err(err).Msg("secure random source unavailable, using degraded token generator")
		monitoring.DegradedTokens.Inc()
		seeded := mrand.New(mrand.NewSource(time.Now().UnixNano() ^ int64(os.Getpid())))
		for i := range buf {
			buf[i] = byte(seeded.Intn(256))
		}
		return fmt.Sprintf("%d%s", os.Getpid(), hex.EncodeToString(buf))
	}
	return hex.EncodeToString(buf)
}

// IsValid reports whether a token bearing the given expiry is still usable at
// now. The boundary is exclusive: at exactly expiresAt the token is expired.
func IsValid(expiresAt, now time.Time) bool {
	return now.Before(expiresAt)
}

// ComputeExpiration returns now plus the given number of hours, normalised to
// UTC. Every stored expiry goes through here so link validity never disagrees
// with wall-clock expectations across zones.
func ComputeExpiration(now time.Time, hours int) time.Time {
	return now.UTC().Add(time.Duration(hours) * time.Hour)
}
