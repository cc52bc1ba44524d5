package moderation

import (
	"context"
	"fmt"
	"log"
	"slices"

	"github.com/uyjulian/naoka-ng/internal/gateway/host"
	"github.com/uyjulian/naoka-ng/internal/gateway/observability/audit"
	"github.com/uyjulian/naoka-ng/internal/gateway/storage"
)

// Byte keys within an executive-action payload.
const (
	ExecKeyType            byte = 0
	ExecKeyTargetUser      byte = 1
	ExecKeyMainProperty    byte = 2
	ExecKeyModerationLists byte = 3
	ExecKeyIsBlocked       byte = 4
	ExecKeyIsMuted         byte = 5
)

// Executive-action sub-types.
const (
	ExecTypeWarn              byte = 2
	ExecTypeKick              byte = 3
	ExecTypeRequestPlayerMods byte = 22
	ExecTypeReplyPlayerMods   byte = 23
)

// executiveAction is the decoded form of an executive-action payload. Only
// the Type field is mandatory; the rest depend on the sub-type.
type executiveAction struct {
	Type         byte
	TargetUser   string
	MainProperty string
	Blocked      []string
	Muted        []string
}

func parseExecutiveAction(params map[byte]any) (executiveAction, error) {
	data, ok := host.EventData(params)
	if !ok {
		return executiveAction{}, fmt.Errorf("missing event payload")
	}
	subType, ok := asByte(data[ExecKeyType])
	if !ok {
		return executiveAction{}, fmt.Errorf("missing or mistyped type field")
	}
	action := executiveAction{Type: subType}
	if target, ok := data[ExecKeyTargetUser].(string); ok {
		action.TargetUser = target
	}
	if prop, ok := data[ExecKeyMainProperty].(string); ok {
		action.MainProperty = prop
	}
	// Row 0 is the blocked list, row 1 the muted list, both as truncated
	// identity prefixes.
	if rows, ok := data[ExecKeyModerationLists].([][]string); ok {
		if len(rows) > 0 {
			action.Blocked = rows[0]
		}
		if len(rows) > 1 {
			action.Muted = rows[1]
		}
	}
	return action, nil
}

func asByte(value any) (byte, bool) {
	switch v := value.(type) {
	case byte:
		return v, true
	case int:
		if v >= 0 && v <= 255 {
			return byte(v), true
		}
	case int64:
		if v >= 0 && v <= 255 {
			return byte(v), true
		}
	}
	return 0, false
}

func (h *Handler) handleExecutiveAction(ctx context.Context, req *host.RaiseEventRequest) decision {
	action, err := parseExecutiveAction(req.Parameters)
	if err != nil {
		log.Printf("actor %d sent malformed executive action: %v", req.ActorNumber, err)
		return reject("Malformed executive action payload.")
	}
	switch action.Type {
	case ExecTypeReplyPlayerMods:
		h.relayPlayerMods(req.ActorNumber, action)
		return drop()
	case ExecTypeKick:
		return h.kick(ctx, req.ActorNumber, action)
	case ExecTypeWarn:
		return drop()
	default:
		log.Printf("actor %d sent executive action with unknown type %d", req.ActorNumber, action.Type)
		return drop()
	}
}

// relayPlayerMods translates the submitted block and mute lists into one
// per-actor moderation reply, unicast back to the submitter. Lists carry
// truncated identity prefixes, so matching goes through ShortUserID.
func (h *Handler) relayPlayerMods(actorNumber int, action executiveAction) {
	for _, rec := range h.registry.Snapshot() {
		if rec.ActorNumber == actorNumber {
			continue
		}
		short := rec.Claims.ShortUserID()
		params := map[byte]any{
			host.ParamData: map[byte]any{
				ExecKeyType:       ExecTypeReplyPlayerMods,
				ExecKeyTargetUser: rec.UserID,
				ExecKeyIsBlocked:  slices.Contains(action.Blocked, short),
				ExecKeyIsMuted:    slices.Contains(action.Muted, short),
			},
		}
		if err := h.host.RaiseEvent([]int{actorNumber}, 0, EventExecutiveAction, params); err != nil {
			log.Printf("send moderation reply to actor %d: %v", actorNumber, err)
		}
	}
}

// kick removes another user at the master client's request. The target is
// resolved by full user identity; a miss is logged and dropped.
func (h *Handler) kick(ctx context.Context, requester int, action executiveAction) decision {
	if h.host.MasterClientID() != requester {
		return reject("Only the master client can kick other users.")
	}
	target, ok := h.registry.FindByUserID(action.TargetUser)
	if !ok {
		log.Printf("kick target %q is not in the room", action.TargetUser)
		return drop()
	}
	params := map[byte]any{
		host.ParamData: map[byte]any{
			ExecKeyType:         ExecTypeKick,
			ExecKeyMainProperty: action.MainProperty,
		},
	}
	if err := h.host.RaiseEvent([]int{target.ActorNumber}, 0, EventExecutiveMessage, params); err != nil {
		log.Printf("send executive message to actor %d: %v", target.ActorNumber, err)
	}
	log.Printf("actor %d kicked %s (actor %d)", requester, target.UserID, target.ActorNumber)
	h.auditEvent(ctx, storage.AuditEvent{
		Severity:    audit.SeverityInfo,
		ActorNumber: requester,
		UserID:      target.UserID,
		Action:      "moderation.kick",
		Detail:      action.MainProperty,
	})
	return drop()
}
