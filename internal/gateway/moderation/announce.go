package moderation

import (
	"context"
	"log"
	"maps"
	"time"

	"github.com/uyjulian/naoka-ng/internal/gateway/host"
)

// OnActorAdmitted runs the post-admission pushes for a newly admitted actor:
// request its block and mute lists, nudge existing actors to refresh theirs
// so the newcomer is covered, and push the rate-limit table. announce is
// false on room create, where there is nobody else to nudge.
func (h *Handler) OnActorAdmitted(actorNumber int, announce bool) {
	request := map[byte]any{
		host.ParamData: map[byte]any{ExecKeyType: ExecTypeRequestPlayerMods},
	}
	if err := h.host.RaiseEvent([]int{actorNumber}, 0, EventExecutiveAction, request); err != nil {
		log.Printf("request moderation data from actor %d: %v", actorNumber, err)
	}
	if announce {
		var others []int
		for _, nr := range h.registry.ActorNumbers() {
			if nr != actorNumber {
				others = append(others, nr)
			}
		}
		if len(others) > 0 {
			if err := h.host.RaiseEvent(others, 0, EventExecutiveAction, request); err != nil {
				log.Printf("refresh moderation data for %d actors: %v", len(others), err)
			}
		}
	}
	h.PushRateLimits(actorNumber)
}

// PushRateLimits unicasts the configured rate-limit table to one actor.
func (h *Handler) PushRateLimits(actorNumber int) {
	params := map[byte]any{
		host.ParamData: map[byte]any{
			rateLimitTableKey:   maps.Clone(h.policy.RateLimits),
			rateLimitEnabledKey: h.policy.RateLimiterEnabled,
		},
	}
	if err := h.host.RaiseEvent([]int{actorNumber}, 0, EventRateLimits, params); err != nil {
		log.Printf("push rate limits to actor %d: %v", actorNumber, err)
	}
}

// AnnounceRateLimits re-pushes the rate-limit table to every admitted actor.
func (h *Handler) AnnounceRateLimits() {
	for _, nr := range h.registry.ActorNumbers() {
		h.PushRateLimits(nr)
	}
}

// RunRateLimitAnnouncer re-broadcasts the rate-limit table on the given
// interval until ctx is canceled.
func (h *Handler) RunRateLimitAnnouncer(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.AnnounceRateLimits()
		}
	}
}
