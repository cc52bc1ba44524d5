package moderation

import (
	"context"
	"fmt"
	"log"

	"github.com/uyjulian/naoka-ng/internal/gateway/host"
	"github.com/uyjulian/naoka-ng/internal/gateway/observability/audit"
	"github.com/uyjulian/naoka-ng/internal/gateway/storage"
	apperrors "github.com/uyjulian/naoka-ng/internal/platform/errors"
)

// kickedReason is surfaced to a peer removed for a spoofed property write.
const kickedReason = "You have been kicked from the server."

// HandleBeforeSetProperties screens a property write before the relay applies
// it. Writing another actor's properties is a spoof attempt and costs the
// sender its connection; a legitimate write is sanitized and forced to
// broadcast.
func (h *Handler) HandleBeforeSetProperties(ctx context.Context, req *host.SetPropertiesRequest, call host.Call) {
	if req.TargetActorNumber == 0 || req.TargetActorNumber != req.SenderActorNumber {
		rec, _ := h.registry.Get(req.SenderActorNumber)
		log.Printf("actor %d attempted a property write on actor %d", req.SenderActorNumber, req.TargetActorNumber)
		h.auditEvent(ctx, storage.AuditEvent{
			Severity:    audit.SeverityWarn,
			ActorNumber: req.SenderActorNumber,
			UserID:      rec.UserID,
			Action:      "moderation.spoofed_property_write",
			Detail:      fmt.Sprintf("target actor %d", req.TargetActorNumber),
		})
		if err := h.host.RemoveActor(req.SenderActorNumber, kickedReason); err != nil {
			log.Printf("remove actor %d: %v", req.SenderActorNumber, err)
		}
		call.Fail(kickedReason)
		return
	}

	req.Broadcast = true
	sanitized, err := h.sanitizer.Sanitize(req.SenderActorNumber, req.Properties)
	if err != nil {
		call.Fail(apperrors.Reason(err))
		return
	}
	for key, value := range h.sanitizer.Forced(req.Properties, sanitized) {
		if err := h.registry.SetOverriddenProperty(req.SenderActorNumber, key, value); err != nil {
			log.Printf("record override for actor %d: %v", req.SenderActorNumber, err)
		}
	}
	req.Properties = sanitized
	if req.Parameters != nil {
		req.Parameters[host.ParamProperties] = sanitized
	}
	call.Continue()
}

// HandleSetProperties runs after the relay applied a property write. The
// before hook already screened it.
func (h *Handler) HandleSetProperties(_ context.Context, _ *host.SetPropertiesRequest, call host.Call) {
	call.Continue()
}
