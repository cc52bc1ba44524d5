package gateway

import (
	"context"
	"testing"

	"github.com/uyjulian/naoka-ng/internal/gateway/admission"
	"github.com/uyjulian/naoka-ng/internal/gateway/host"
	"github.com/uyjulian/naoka-ng/internal/gateway/host/hosttest"
	"github.com/uyjulian/naoka-ng/internal/gateway/identity"
	"github.com/uyjulian/naoka-ng/internal/gateway/moderation"
	"github.com/uyjulian/naoka-ng/internal/gateway/policy"
	"github.com/uyjulian/naoka-ng/internal/gateway/property"
	"github.com/uyjulian/naoka-ng/internal/gateway/session"
	apperrors "github.com/uyjulian/naoka-ng/internal/platform/errors"
)

type staticVerifier struct {
	claims map[string]identity.Claims
}

func (v *staticVerifier) Verify(token string) (identity.Claims, error) {
	claims, ok := v.claims[token]
	if !ok {
		return identity.Claims{}, apperrors.New(apperrors.CodeJoinTokenInvalid, "join token is invalid")
	}
	return claims, nil
}

// newTestGateway wires a full room instance against a fake host, the way the
// app package does against a real one.
func newTestGateway(t *testing.T, fake *hosttest.Fake, tokens map[string]identity.Claims) *Gateway {
	t.Helper()
	registry := session.NewRegistry()
	sanitizer := property.NewSanitizer()
	pol := policy.Defaults()
	mod := moderation.NewHandler(fake, registry, sanitizer, pol, nil)
	adm := admission.NewController(&staticVerifier{claims: tokens}, registry, sanitizer, pol, mod, nil)
	return New(adm, mod)
}

func TestRoomLifecycle(t *testing.T) {
	fake := hosttest.NewFake(1, 2)
	gw := newTestGateway(t, fake, map[string]identity.Claims{
		"tok-creator": {
			UserID:  "usr_creator",
			Address: "203.0.113.1",
			User:    identity.UserClaims{ID: "usr_creator", DisplayName: "creator"},
		},
		"tok-guest": {
			UserID:  "usr_guest",
			Address: "203.0.113.2",
			User:    identity.UserClaims{ID: "usr_guest", DisplayName: "guest"},
		},
	})
	ctx := context.Background()

	params := func(token string) map[byte]any {
		return map[byte]any{host.ParamAuthPayload: map[byte]any{host.AuthTokenKey: token}}
	}

	create := hosttest.NewCallRecorder()
	gw.OnCreateRoom(ctx, &host.CreateRoomRequest{
		RoomID:          "wrld_a:77",
		ActorNumber:     1,
		Parameters:      params("tok-creator"),
		ActorProperties: map[string]any{},
	}, create)
	if create.Outcome() != hosttest.OutcomeContinue {
		t.Fatalf("create: %s (%q)", create.Outcome(), create.Reason)
	}

	join := hosttest.NewCallRecorder()
	gw.OnJoin(ctx, &host.JoinRequest{
		ActorNumber:     2,
		Parameters:      params("tok-guest"),
		ActorProperties: map[string]any{},
	}, join)
	if join.Outcome() != hosttest.OutcomeContinue {
		t.Fatalf("join: %s (%q)", join.Outcome(), join.Reason)
	}

	// Both admissions requested moderation data and pushed rate limits.
	if got := len(fake.EventsWithCode(moderation.EventRateLimits)); got != 2 {
		t.Fatalf("expected 2 rate-limit pushes, got %d", got)
	}
	if got := len(fake.EventsWithCode(moderation.EventExecutiveAction)); got < 2 {
		t.Fatalf("expected moderation-data requests, got %d", got)
	}

	// An in-room voice frame passes through untouched.
	voice := hosttest.NewCallRecorder()
	gw.OnRaiseEvent(ctx, &host.RaiseEventRequest{ActorNumber: 2, Code: moderation.EventVoiceData}, voice)
	if voice.Outcome() != hosttest.OutcomeContinue {
		t.Fatalf("voice: %s", voice.Outcome())
	}

	// A legitimate property write is sanitized and forced to broadcast.
	props := hosttest.NewCallRecorder()
	writeReq := &host.SetPropertiesRequest{
		SenderActorNumber: 2,
		TargetActorNumber: 2,
		Properties:        map[string]any{"avatarEyeHeight": 1.7},
	}
	gw.OnBeforeSetProperties(ctx, writeReq, props)
	if props.Outcome() != hosttest.OutcomeContinue {
		t.Fatalf("property write: %s (%q)", props.Outcome(), props.Reason)
	}
	if !writeReq.Broadcast {
		t.Fatal("expected broadcast forced")
	}
	after := hosttest.NewCallRecorder()
	gw.OnSetProperties(ctx, writeReq, after)
	if after.Outcome() != hosttest.OutcomeContinue {
		t.Fatalf("after property write: %s", after.Outcome())
	}

	leave := hosttest.NewCallRecorder()
	gw.OnLeave(ctx, &host.LeaveRequest{ActorNumber: 2}, leave)
	if leave.Outcome() != hosttest.OutcomeContinue {
		t.Fatalf("leave: %s", leave.Outcome())
	}

	closeCall := hosttest.NewCallRecorder()
	gw.OnClose(ctx, &host.CloseRequest{RoomID: "wrld_a:77"}, closeCall)
	if closeCall.Outcome() != hosttest.OutcomeContinue {
		t.Fatalf("close: %s", closeCall.Outcome())
	}
}

func TestInvalidTokenJoinRejected(t *testing.T) {
	fake := hosttest.NewFake(1)
	gw := newTestGateway(t, fake, map[string]identity.Claims{})

	call := hosttest.NewCallRecorder()
	gw.OnJoin(context.Background(), &host.JoinRequest{
		ActorNumber: 2,
		Parameters:  map[byte]any{host.ParamAuthPayload: map[byte]any{host.AuthTokenKey: "forged"}},
	}, call)
	if call.Outcome() != hosttest.OutcomeFail {
		t.Fatalf("expected fail, got %s", call.Outcome())
	}
	if len(fake.Raised) != 0 {
		t.Fatal("expected no side effects for a rejected join")
	}
}
