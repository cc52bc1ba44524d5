package moderation

import (
	"context"
	"log"

	"github.com/uyjulian/naoka-ng/internal/gateway/host"
	"github.com/uyjulian/naoka-ng/internal/gateway/observability/audit"
	"github.com/uyjulian/naoka-ng/internal/gateway/policy"
	"github.com/uyjulian/naoka-ng/internal/gateway/property"
	"github.com/uyjulian/naoka-ng/internal/gateway/session"
	"github.com/uyjulian/naoka-ng/internal/gateway/storage"
	apperrors "github.com/uyjulian/naoka-ng/internal/platform/errors"
)

// outcome is the closed set of dispositions a code handler can return.
type outcome int

const (
	// outcomePass forwards the event, with any modifications applied to the
	// request.
	outcomePass outcome = iota
	// outcomeDrop suppresses the event without signaling failure to the peer.
	outcomeDrop
	// outcomeReject rejects the event and surfaces a reason to the peer.
	outcomeReject
)

// decision pairs an outcome with the peer-facing reason for rejections.
type decision struct {
	outcome outcome
	reason  string
}

func pass() decision                { return decision{outcome: outcomePass} }
func drop() decision                { return decision{outcome: outcomeDrop} }
func reject(reason string) decision { return decision{outcome: outcomeReject, reason: reason} }

// eventHandler decides the disposition of one in-room event.
type eventHandler func(ctx context.Context, req *host.RaiseEventRequest) decision

// Handler mediates in-room control messages for one room instance.
type Handler struct {
	host      host.Host
	registry  *session.Registry
	sanitizer *property.Sanitizer
	policy    policy.Policy
	audit     *audit.Emitter

	handlers map[byte]eventHandler
}

// NewHandler creates the moderation handler for one room instance. The audit
// emitter may be nil.
func NewHandler(h host.Host, registry *session.Registry, sanitizer *property.Sanitizer, pol policy.Policy, emitter *audit.Emitter) *Handler {
	handler := &Handler{
		host:      h,
		registry:  registry,
		sanitizer: sanitizer,
		policy:    pol.Clone(),
		audit:     emitter,
	}
	handler.handlers = map[byte]eventHandler{
		EventUnused:              handler.rejectRelayOnly,
		EventVoiceData:           passThrough,
		EventExecutiveMessage:    handler.rejectRelayOnly,
		EventPastEvents:          passThrough,
		EventSyncEvents:          passThrough,
		EventInitialSyncFinished: passThrough,
		EventProcessEvent:        passThrough,
		EventSerialization:       passThrough,
		EventInterestList:        handler.replyInterestList,
		EventUdonSync:            passThrough,
		EventChairSync:           passThrough,
		EventExecutiveAction:     handler.handleExecutiveAction,
		EventUserRecordUpdate:    handler.refreshUserRecord,
		EventAvatarEyeHeight:     handler.applyEyeHeight,
	}
	return handler
}

// HandleRaiseEvent dispatches one in-room message by event code and takes
// exactly one terminal action on call.
func (h *Handler) HandleRaiseEvent(ctx context.Context, req *host.RaiseEventRequest, call host.Call) {
	if req.Code >= applicationEventThreshold {
		h.apply(call, h.gateApplicationEvent(ctx, req))
		return
	}
	fn, ok := h.handlers[req.Code]
	if !ok {
		log.Printf("dropping unknown event code %d from actor %d", req.Code, req.ActorNumber)
		call.Cancel()
		return
	}
	h.apply(call, fn(ctx, req))
}

func (h *Handler) apply(call host.Call, d decision) {
	switch d.outcome {
	case outcomePass:
		call.Continue()
	case outcomeReject:
		call.Fail(d.reason)
	default:
		call.Cancel()
	}
}

func passThrough(context.Context, *host.RaiseEventRequest) decision { return pass() }

// rejectRelayOnly handles codes only the relay itself may emit. A peer
// sending one is probing the protocol.
func (h *Handler) rejectRelayOnly(ctx context.Context, req *host.RaiseEventRequest) decision {
	rec, _ := h.registry.Get(req.ActorNumber)
	log.Printf("actor %d sent relay-only event code %d", req.ActorNumber, req.Code)
	h.auditEvent(ctx, storage.AuditEvent{
		Severity:    audit.SeverityWarn,
		ActorNumber: req.ActorNumber,
		UserID:      rec.UserID,
		Action:      "event.suspicious",
		Detail:      "relay-only event code",
	})
	return reject("Unauthorized.")
}

// replyInterestList answers an interest-list request with the actor numbers
// currently present, unicast back to the requester, and drops the original.
func (h *Handler) replyInterestList(_ context.Context, req *host.RaiseEventRequest) decision {
	params := map[byte]any{
		host.ParamData:        h.host.ActorNumbers(),
		host.ParamActorNumber: 0,
	}
	if err := h.host.RaiseEvent([]int{req.ActorNumber}, 0, EventInterestList, params); err != nil {
		log.Printf("send interest list to actor %d: %v", req.ActorNumber, err)
	}
	return drop()
}

// refreshUserRecord re-projects the actor's validated user payload into its
// properties. The token claims are the source of truth for the profile.
func (h *Handler) refreshUserRecord(_ context.Context, req *host.RaiseEventRequest) decision {
	rec, ok := h.registry.Get(req.ActorNumber)
	if !ok {
		log.Printf("user record update from unknown actor %d", req.ActorNumber)
		return drop()
	}
	h.applyProperties(req.ActorNumber, map[string]any{"user": rec.Claims.ActorProperties()})
	return drop()
}

// applyEyeHeight sanitizes and applies the property-adjunct payload carried
// on an eye-height event.
func (h *Handler) applyEyeHeight(_ context.Context, req *host.RaiseEventRequest) decision {
	raw, ok := req.Parameters[host.ParamData].(map[string]any)
	if !ok {
		return reject("Malformed property payload.")
	}
	sanitized, err := h.sanitizer.Sanitize(req.ActorNumber, raw)
	if err != nil {
		return reject(apperrors.Reason(err))
	}
	for key, value := range h.sanitizer.Forced(raw, sanitized) {
		if err := h.registry.SetOverriddenProperty(req.ActorNumber, key, value); err != nil {
			log.Printf("record override for actor %d: %v", req.ActorNumber, err)
		}
	}
	h.applyProperties(req.ActorNumber, sanitized)
	return drop()
}

// gateApplicationEvent handles codes at or above the application threshold.
// Only the instantiation code is gated; the rest forward untouched.
func (h *Handler) gateApplicationEvent(ctx context.Context, req *host.RaiseEventRequest) decision {
	if req.Code != EventInstantiate {
		return pass()
	}
	data, ok := host.EventData(req.Parameters)
	if !ok {
		return reject("Malformed instantiation payload.")
	}
	prefab, _ := data[instantiatePrefabKey].(string)
	if prefab != PlayerPrefabName {
		return reject("Only VRCPlayer can be spawned.")
	}
	if err := h.registry.MarkInstantiated(req.ActorNumber); err != nil {
		if apperrors.IsCode(err, apperrors.CodeSessionAlreadySpawned) {
			h.auditEvent(ctx, storage.AuditEvent{
				Severity:    audit.SeverityWarn,
				ActorNumber: req.ActorNumber,
				Action:      "event.suspicious",
				Detail:      "repeat instantiation",
			})
			return reject("Already instantiated.")
		}
		log.Printf("instantiation from actor %d without a session: %v", req.ActorNumber, err)
		return reject("Unauthorized.")
	}
	// Spatial placement comes from the spawn logic, not the peer.
	delete(data, instantiatePositionKey)
	delete(data, instantiateRotationKey)
	req.CacheOp = host.CacheAddToRoom
	return pass()
}

// applyProperties writes props for the actor and mirrors the change to the
// room through the synthetic properties event.
func (h *Handler) applyProperties(actorNumber int, props map[string]any) {
	if err := h.host.SetProperties(actorNumber, props, true); err != nil {
		log.Printf("set properties for actor %d: %v", actorNumber, err)
	}
	params := map[byte]any{
		host.ParamActorNumber: actorNumber,
		host.ParamProperties:  props,
	}
	if err := h.host.RaiseEvent(h.host.ActorNumbers(), 0, EventPropertiesChanged, params); err != nil {
		log.Printf("broadcast properties of actor %d: %v", actorNumber, err)
	}
}

// auditEvent appends an audit record. Append failures are logged and never
// fail the enclosing callback.
func (h *Handler) auditEvent(ctx context.Context, evt storage.AuditEvent) {
	if err := h.audit.Emit(ctx, evt); err != nil {
		log.Printf("append audit event: %v", err)
	}
}
