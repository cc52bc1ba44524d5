// Package moderation implements the per-message-code state machine for
// in-room control messages: pass-through, interest-list synthesis,
// executive actions, property adjuncts, and instantiation gating.
package moderation

// Event codes carried on every in-room message.
const (
	// EventUnused is a reserved code no client ever sends legitimately.
	EventUnused byte = 0
	// EventVoiceData carries voice frames.
	EventVoiceData byte = 1
	// EventExecutiveMessage delivers a moderation verdict to one actor.
	// Only the gateway itself may emit it.
	EventExecutiveMessage byte = 2
	// EventPastEvents replays cached events to the master on join.
	EventPastEvents byte = 3
	// EventSyncEvents carries object sync batches.
	EventSyncEvents byte = 4
	// EventInitialSyncFinished signals the end of the join sync.
	EventInitialSyncFinished byte = 5
	// EventProcessEvent carries scripted-object events.
	EventProcessEvent byte = 6
	// EventSerialization carries per-frame serialization data.
	EventSerialization byte = 7
	// EventInterestList requests the actor-view list for interest
	// management.
	EventInterestList byte = 8
	// EventUdonSync carries script and animation sync data.
	EventUdonSync byte = 9
	// EventChairSync carries station-occupancy sync data.
	EventChairSync byte = 15
	// EventExecutiveAction carries moderation queries, kicks, and warns.
	EventExecutiveAction byte = 33
	// EventRateLimits pushes the configured rate-limit table to an actor.
	EventRateLimits byte = 34
	// EventUserRecordUpdate asks the gateway to refresh the actor's
	// profile data.
	EventUserRecordUpdate byte = 40
	// EventAvatarEyeHeight carries a property-adjunct payload updating the
	// avatar eye height.
	EventAvatarEyeHeight byte = 42
	// EventInstantiate spawns the actor's in-room representation.
	EventInstantiate byte = 202
	// EventPropertiesChanged is the synthetic properties message the
	// gateway emits after applying a sanitized adjunct payload.
	EventPropertiesChanged byte = 253
)

// applicationEventThreshold separates relay-protocol codes from
// application-level instantiation codes. Unknown codes below it are dropped
// silently; codes at or above it are forwarded after code-specific gating.
const applicationEventThreshold byte = 200

// PlayerPrefabName is the only object type peers may instantiate.
const PlayerPrefabName = "VRCPlayer"

// Keys within an instantiation payload.
const (
	instantiatePrefabKey   byte = 0
	instantiatePositionKey byte = 1
	instantiateRotationKey byte = 2
)

// Keys within a rate-limit push payload.
const (
	rateLimitTableKey   byte = 0
	rateLimitEnabledKey byte = 1
)
