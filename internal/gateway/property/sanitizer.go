// Package property sanitizes peer-supplied property sets before they are
// broadcast or persisted.
//
// The incoming set is untrusted: server-owned keys are stripped, known keys
// are type-checked and clamped, unknown keys are dropped. A returned error
// means the enclosing callback must be rejected and no part of the output
// applied.
package property

import (
	"fmt"
	"math"

	apperrors "github.com/uyjulian/naoka-ng/internal/platform/errors"
)

// Eye-height bounds enforced on avatarEyeHeight submissions.
const (
	MinEyeHeight = 0.1
	MaxEyeHeight = 5.0
)

// Server-owned property keys. Peers may not set these; the admission flow
// injects them from validated token claims.
var serverOwnedKeys = map[string]struct{}{
	"user":        {},
	"avatarDict":  {},
	"favatarDict": {},
}

// keyPolicy validates and normalizes the value of one known property key.
type keyPolicy func(value any) (any, error)

var keyPolicies = map[string]keyPolicy{
	"avatarEyeHeight":     clampEyeHeight,
	"showSocialRank":      requireBool("showSocialRank"),
	"canModerateInstance": requireBool("canModerateInstance"),
}

// Sanitizer screens property sets submitted by peers.
type Sanitizer struct{}

// NewSanitizer creates a Sanitizer.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// Sanitize returns the sanitized form of raw for the given actor. On error
// the caller must reject the enclosing callback; no part of the returned
// map may be applied. Sanitizing an already-sanitized set returns an equal
// set.
func (s *Sanitizer) Sanitize(actorNumber int, raw map[string]any) (map[string]any, error) {
	clean := make(map[string]any, len(raw))
	for key, value := range raw {
		if _, owned := serverOwnedKeys[key]; owned {
			continue
		}
		policy, known := keyPolicies[key]
		if !known {
			continue
		}
		normalized, err := policy(value)
		if err != nil {
			return nil, apperrors.WithMetadata(
				apperrors.CodePropertyRejected,
				err.Error(),
				map[string]string{"Key": key, "Actor": fmt.Sprintf("%d", actorNumber)},
			)
		}
		clean[key] = normalized
	}
	return clean, nil
}

// Forced returns the entries of sanitized whose value differs from what the
// peer submitted in raw. Callers layer these over the session record as
// server-forced overrides.
func (s *Sanitizer) Forced(raw, sanitized map[string]any) map[string]any {
	forced := map[string]any{}
	for key, value := range sanitized {
		submitted, ok := raw[key]
		if !ok || submitted != value {
			forced[key] = value
		}
	}
	return forced
}

func clampEyeHeight(value any) (any, error) {
	var height float64
	switch v := value.(type) {
	case float64:
		height = v
	case float32:
		height = float64(v)
	case int:
		height = float64(v)
	case int64:
		height = float64(v)
	default:
		return nil, fmt.Errorf("avatarEyeHeight must be a number")
	}
	if math.IsNaN(height) || math.IsInf(height, 0) {
		return nil, fmt.Errorf("avatarEyeHeight must be a finite number")
	}
	if height < MinEyeHeight {
		height = MinEyeHeight
	}
	if height > MaxEyeHeight {
		height = MaxEyeHeight
	}
	return height, nil
}

func requireBool(key string) keyPolicy {
	return func(value any) (any, error) {
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%s must be a boolean", key)
		}
		return b, nil
	}
}
