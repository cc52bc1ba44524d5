// Package gateway joins the admission controller and the moderation handler
// behind the host callback surface of one room instance.
package gateway

import (
	"context"

	"github.com/uyjulian/naoka-ng/internal/gateway/admission"
	"github.com/uyjulian/naoka-ng/internal/gateway/host"
	"github.com/uyjulian/naoka-ng/internal/gateway/moderation"
)

// Gateway is the per-room callback surface the host drives. Each callback
// takes exactly one terminal action on its Call.
type Gateway struct {
	admission  *admission.Controller
	moderation *moderation.Handler
}

// New creates the callback surface for one room instance.
func New(adm *admission.Controller, mod *moderation.Handler) *Gateway {
	return &Gateway{admission: adm, moderation: mod}
}

// OnCreateRoom admits the room creator.
func (g *Gateway) OnCreateRoom(ctx context.Context, req *host.CreateRoomRequest, call host.Call) {
	g.admission.AdmitCreate(ctx, req, call)
}

// OnJoin admits a joining actor.
func (g *Gateway) OnJoin(ctx context.Context, req *host.JoinRequest, call host.Call) {
	g.admission.AdmitJoin(ctx, req, call)
}

// OnLeave releases a departing actor's session.
func (g *Gateway) OnLeave(ctx context.Context, req *host.LeaveRequest, call host.Call) {
	g.admission.OnLeave(ctx, req, call)
}

// OnClose lets the room shut down.
func (g *Gateway) OnClose(ctx context.Context, req *host.CloseRequest, call host.Call) {
	g.admission.OnClose(ctx, req, call)
}

// OnRaiseEvent mediates one in-room message.
func (g *Gateway) OnRaiseEvent(ctx context.Context, req *host.RaiseEventRequest, call host.Call) {
	g.moderation.HandleRaiseEvent(ctx, req, call)
}

// OnBeforeSetProperties screens a property write before the relay applies it.
func (g *Gateway) OnBeforeSetProperties(ctx context.Context, req *host.SetPropertiesRequest, call host.Call) {
	g.moderation.HandleBeforeSetProperties(ctx, req, call)
}

// OnSetProperties runs after a property write was applied.
func (g *Gateway) OnSetProperties(ctx context.Context, req *host.SetPropertiesRequest, call host.Call) {
	g.moderation.HandleSetProperties(ctx, req, call)
}

// Moderation exposes the moderation handler for the periodic announcer.
func (g *Gateway) Moderation() *moderation.Handler {
	return g.moderation
}
