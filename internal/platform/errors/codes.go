// Package errors provides structured error handling for the gateway.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Join token errors
	CodeJoinTokenInvalid Code = "JOIN_TOKEN_INVALID"
	CodeJoinTokenExpired Code = "JOIN_TOKEN_EXPIRED"

	// Admission errors
	CodeSessionDuplicateUser  Code = "SESSION_DUPLICATE_USER"
	CodeSessionAddressLimit   Code = "SESSION_ADDRESS_LIMIT"
	CodeSessionDuplicateActor Code = "SESSION_DUPLICATE_ACTOR"
	CodeSessionActorNotFound  Code = "SESSION_ACTOR_NOT_FOUND"
	CodeSessionAlreadySpawned Code = "SESSION_ALREADY_SPAWNED"

	// Property errors
	CodePropertyRejected Code = "PROPERTY_REJECTED"

	// Moderation errors
	CodeEventUnauthorized Code = "EVENT_UNAUTHORIZED"
	CodeEventMalformed    Code = "EVENT_MALFORMED"
	CodeKickNotMaster     Code = "KICK_NOT_MASTER"
	CodeSpawnDenied       Code = "SPAWN_DENIED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)
