// Package admission decides whether a creating or joining actor enters the
// room: join-token validation, duplicate-identity and per-address caps,
// and sanitization of the submitted actor properties.
package admission

import (
	"context"
	"fmt"
	"log"

	"github.com/uyjulian/naoka-ng/internal/gateway/host"
	"github.com/uyjulian/naoka-ng/internal/gateway/identity"
	"github.com/uyjulian/naoka-ng/internal/gateway/observability/audit"
	"github.com/uyjulian/naoka-ng/internal/gateway/policy"
	"github.com/uyjulian/naoka-ng/internal/gateway/property"
	"github.com/uyjulian/naoka-ng/internal/gateway/session"
	"github.com/uyjulian/naoka-ng/internal/gateway/storage"
	apperrors "github.com/uyjulian/naoka-ng/internal/platform/errors"
)

// Peer-facing rejection reasons.
const (
	reasonInvalidToken  = "Invalid join token presented."
	reasonDuplicateUser = "User is already in this room."
	reasonAddressLimit  = "Max. account limit per instance reached. You've been bapped."
)

// createActorNumber is the fixed actor number of the room creator.
const createActorNumber = 1

// TokenVerifier validates presented join tokens.
type TokenVerifier interface {
	Verify(token string) (identity.Claims, error)
}

// Notifier receives the post-admission side effects. Implemented by the
// moderation handler; kept as an interface so admission stays independent
// of it.
type Notifier interface {
	OnActorAdmitted(actorNumber int, announce bool)
}

// Controller admits actors into one room instance.
type Controller struct {
	verifier  TokenVerifier
	registry  *session.Registry
	sanitizer *property.Sanitizer
	policy    policy.Policy
	notifier  Notifier
	audit     *audit.Emitter
}

// NewController creates the admission controller for one room instance.
// The notifier and audit emitter may be nil.
func NewController(verifier TokenVerifier, registry *session.Registry, sanitizer *property.Sanitizer, pol policy.Policy, notifier Notifier, emitter *audit.Emitter) *Controller {
	return &Controller{
		verifier:  verifier,
		registry:  registry,
		sanitizer: sanitizer,
		policy:    pol.Clone(),
		notifier:  notifier,
		audit:     emitter,
	}
}

// AdmitCreate handles the room-create callback. The creator is actor 1 and
// has nobody to collide with, so only the token and properties are checked.
func (c *Controller) AdmitCreate(ctx context.Context, req *host.CreateRoomRequest, call host.Call) {
	claims, ok := c.verifyToken(ctx, createActorNumber, req.Parameters, call)
	if !ok {
		return
	}
	c.finishAdmission(ctx, claims, createActorNumber, req.ActorProperties, call, func(sanitized map[string]any) {
		req.ActorProperties = sanitized
	}, false)
}

// AdmitJoin handles the join callback. Checks run in order and short-circuit
// on the first failure; the registry is untouched until all pass.
func (c *Controller) AdmitJoin(ctx context.Context, req *host.JoinRequest, call host.Call) {
	claims, ok := c.verifyToken(ctx, req.ActorNumber, req.Parameters, call)
	if !ok {
		return
	}

	// One scan covers both the duplicate-identity check and the address
	// count. Moderators may hold concurrent sessions.
	addressCount := 0
	for _, rec := range c.registry.Snapshot() {
		if rec.UserID == claims.UserID && !claims.HasTag(identity.TagModerator) {
			c.rejectAdmission(ctx, req.ActorNumber, claims.UserID, "duplicate user")
			call.Fail(reasonDuplicateUser)
			return
		}
		if rec.Address == claims.Address {
			addressCount++
		}
	}
	if addressCount >= c.policy.MaxAccountsPerAddress {
		c.rejectAdmission(ctx, req.ActorNumber, claims.UserID,
			fmt.Sprintf("address cap %d reached", c.policy.MaxAccountsPerAddress))
		call.Fail(reasonAddressLimit)
		return
	}

	c.finishAdmission(ctx, claims, req.ActorNumber, req.ActorProperties, call, func(sanitized map[string]any) {
		req.ActorProperties = sanitized
	}, true)
}

// OnLeave drops the departing actor's session record.
func (c *Controller) OnLeave(_ context.Context, req *host.LeaveRequest, call host.Call) {
	c.registry.Remove(req.ActorNumber)
	call.Continue()
}

// OnClose lets the room shut down. Teardown belongs to the host.
func (c *Controller) OnClose(_ context.Context, _ *host.CloseRequest, call host.Call) {
	call.Continue()
}

// verifyToken extracts and verifies the join token. On failure it takes the
// terminal action and reports false.
func (c *Controller) verifyToken(ctx context.Context, actorNumber int, params map[byte]any, call host.Call) (identity.Claims, bool) {
	token, _ := host.JoinToken(params)
	claims, err := c.verifier.Verify(token)
	if err != nil {
		log.Printf("reject actor %d: %v", actorNumber, err)
		c.rejectAdmission(ctx, actorNumber, "", apperrors.Reason(err))
		call.Fail(reasonInvalidToken)
		return identity.Claims{}, false
	}
	return claims, true
}

// finishAdmission runs the shared tail of both admission paths: sanitize the
// submitted properties, inject the server-owned user projection, insert the
// session record, continue, then fire the side effects.
func (c *Controller) finishAdmission(ctx context.Context, claims identity.Claims, actorNumber int, submitted map[string]any, call host.Call, applyProperties func(map[string]any), announce bool) {
	sanitized, err := c.sanitizer.Sanitize(actorNumber, submitted)
	if err != nil {
		c.rejectAdmission(ctx, actorNumber, claims.UserID, apperrors.Reason(err))
		call.Fail(apperrors.Reason(err))
		return
	}
	forced := c.sanitizer.Forced(submitted, sanitized)
	sanitized["user"] = claims.ActorProperties()

	rec := session.Record{
		ActorNumber:          actorNumber,
		UserID:               claims.UserID,
		Address:              claims.Address,
		Claims:               claims,
		OverriddenProperties: forced,
	}
	if err := c.registry.Insert(rec); err != nil {
		log.Printf("insert session record for actor %d: %v", actorNumber, err)
		c.rejectAdmission(ctx, actorNumber, claims.UserID, apperrors.Reason(err))
		call.Fail(apperrors.Reason(err))
		return
	}

	applyProperties(sanitized)
	call.Continue()

	// Side effects never roll back an admission.
	if c.notifier != nil {
		c.notifier.OnActorAdmitted(actorNumber, announce)
	}
	c.auditEvent(ctx, storage.AuditEvent{
		Severity:    audit.SeverityInfo,
		ActorNumber: actorNumber,
		UserID:      claims.UserID,
		Action:      "admission.admitted",
	})
}

func (c *Controller) rejectAdmission(ctx context.Context, actorNumber int, userID, detail string) {
	c.auditEvent(ctx, storage.AuditEvent{
		Severity:    audit.SeverityWarn,
		ActorNumber: actorNumber,
		UserID:      userID,
		Action:      "admission.rejected",
		Detail:      detail,
	})
}

func (c *Controller) auditEvent(ctx context.Context, evt storage.AuditEvent) {
	if err := c.audit.Emit(ctx, evt); err != nil {
		log.Printf("append audit event: %v", err)
	}
}
