// Package policy holds runtime configuration for the gateway: the
// rate-limit table pushed to actors and the per-address account cap.
//
// The policy is populated once at startup from the remote API and is
// read-only afterward.
package policy

import "maps"

// DefaultMaxAccountsPerAddress applies when no remote value is configured.
const DefaultMaxAccountsPerAddress = 5

// Policy is the frozen runtime configuration.
type Policy struct {
	// RateLimits maps an event code to its per-second send limit.
	RateLimits map[byte]int
	// RateLimiterEnabled toggles client-side enforcement of RateLimits.
	RateLimiterEnabled bool
	// MaxAccountsPerAddress caps concurrent sessions sharing one network
	// address.
	MaxAccountsPerAddress int
}

// Defaults returns the policy used when the remote config is unavailable.
func Defaults() Policy {
	return Policy{
		RateLimits:            map[byte]int{},
		RateLimiterEnabled:    false,
		MaxAccountsPerAddress: DefaultMaxAccountsPerAddress,
	}
}

// Clone returns a deep copy so callers cannot mutate the frozen policy.
func (p Policy) Clone() Policy {
	p.RateLimits = maps.Clone(p.RateLimits)
	return p
}
