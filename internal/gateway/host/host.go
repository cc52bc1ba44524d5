// Package host defines the contract between the gateway and the room-relay
// host that delivers lifecycle callbacks.
//
// The relay owns room transport, actor numbering, and broadcast primitives.
// The gateway only decides whether each callback proceeds: for every request
// the host delivers, exactly one terminal action must be invoked on the
// accompanying Call.
package host

// Wire parameter slots shared with the relay protocol.
const (
	// ParamData carries the event payload on raise-event requests.
	ParamData byte = 245
	// ParamAuthPayload carries the nested auth key-value payload on
	// create and join requests.
	ParamAuthPayload byte = 248
	// ParamProperties mirrors the property table on property-set requests.
	ParamProperties byte = 251
	// ParamActorNumber carries the sending actor number on synthesized
	// events.
	ParamActorNumber byte = 254
)

// AuthTokenKey is the key within the auth payload map that holds the join
// token string.
const AuthTokenKey byte = 2

// CacheOp instructs the relay how to cache a forwarded event.
type CacheOp byte

const (
	// CacheNone forwards the event without caching.
	CacheNone CacheOp = iota
	// CacheAddToRoom adds the event to the room cache so late joiners
	// replay it.
	CacheAddToRoom
)

// Call is the terminal-action surface of one host callback. Implementations
// belong to the host; the gateway must invoke exactly one of the three.
type Call interface {
	// Continue lets the callback proceed, with any modifications the
	// gateway applied to the request.
	Continue()
	// Fail rejects the callback and surfaces reason to the offending peer.
	Fail(reason string)
	// Cancel suppresses the callback without signaling failure.
	Cancel()
}

// Host exposes the relay primitives the gateway calls back into.
type Host interface {
	// RaiseEvent delivers a synthesized event to the target actor numbers.
	// A sender of 0 marks the event as relay-originated.
	RaiseEvent(targets []int, sender int, code byte, params map[byte]any) error
	// SetProperties writes properties for an actor, optionally
	// broadcasting the change to the room.
	SetProperties(actorNumber int, props map[string]any, broadcast bool) error
	// RemoveActor forcibly disconnects an actor with a reason.
	RemoveActor(actorNumber int, reason string) error
	// MasterClientID returns the actor number the relay designates as the
	// room master.
	MasterClientID() int
	// ActorNumbers returns the actor numbers currently present in the room
	// from the relay's perspective.
	ActorNumbers() []int
}

// CreateRoomRequest is delivered when the first actor creates the room.
type CreateRoomRequest struct {
	RoomID          string
	ActorNumber     int
	Parameters      map[byte]any
	ActorProperties map[string]any
}

// JoinRequest is delivered for every subsequent actor joining the room.
type JoinRequest struct {
	ActorNumber     int
	Parameters      map[byte]any
	ActorProperties map[string]any
}

// LeaveRequest is delivered when an actor departs.
type LeaveRequest struct {
	ActorNumber int
}

// CloseRequest is delivered when the room shuts down.
type CloseRequest struct {
	RoomID string
}

// SetPropertiesRequest is delivered before and after a property write.
type SetPropertiesRequest struct {
	// SenderActorNumber is the transport-level sender of the request.
	SenderActorNumber int
	// TargetActorNumber is the actor whose properties the sender wants to
	// write. Anything other than the sender itself is a spoof attempt.
	TargetActorNumber int
	Broadcast         bool
	Properties        map[string]any
	Parameters        map[byte]any
}

// RaiseEventRequest is delivered for every in-room message.
type RaiseEventRequest struct {
	ActorNumber int
	Code        byte
	Parameters  map[byte]any
	CacheOp     CacheOp
}

// JoinToken extracts the join token string from a request parameter map.
// The token sits at a fixed key inside the nested auth payload; extraction
// is positional, not self-describing.
func JoinToken(params map[byte]any) (string, bool) {
	payload, ok := params[ParamAuthPayload].(map[byte]any)
	if !ok {
		return "", false
	}
	token, ok := payload[AuthTokenKey].(string)
	return token, ok
}

// EventData returns the event payload map of a raise-event request, if the
// payload is the keyed-map form.
func EventData(params map[byte]any) (map[byte]any, bool) {
	data, ok := params[ParamData].(map[byte]any)
	return data, ok
}
