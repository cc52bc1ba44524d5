package session

import (
	"testing"

	"github.com/uyjulian/naoka-ng/internal/gateway/identity"
	apperrors "github.com/uyjulian/naoka-ng/internal/platform/errors"
)

func record(actor int, userID, address string) Record {
	return Record{
		ActorNumber: actor,
		UserID:      userID,
		Address:     address,
		Claims:      identity.Claims{UserID: userID, Address: address},
	}
}

func TestInsertRejectsDuplicateActorNumber(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Insert(record(1, "usr_a", "203.0.113.1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := reg.Insert(record(1, "usr_b", "203.0.113.2"))
	if !apperrors.IsCode(err, apperrors.CodeSessionDuplicateActor) {
		t.Fatalf("expected duplicate-actor error, got %v", err)
	}
	if reg.Count() != 1 {
		t.Fatalf("expected 1 record, got %d", reg.Count())
	}
}

func TestRemoveFreesActorNumber(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Insert(record(2, "usr_a", "203.0.113.1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	reg.Remove(2)
	if _, ok := reg.Get(2); ok {
		t.Fatal("expected record to be gone")
	}
	if err := reg.Insert(record(2, "usr_b", "203.0.113.1")); err != nil {
		t.Fatalf("reinsert after remove: %v", err)
	}
	// Removing an absent actor is a no-op.
	reg.Remove(99)
}

func TestFindByUserID(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Insert(record(1, "usr_a", "203.0.113.1"))
	_ = reg.Insert(record(2, "usr_b", "203.0.113.2"))

	rec, ok := reg.FindByUserID("usr_b")
	if !ok || rec.ActorNumber != 2 {
		t.Fatalf("expected actor 2, got %v (found=%v)", rec, ok)
	}
	if _, ok := reg.FindByUserID("usr_missing"); ok {
		t.Fatal("expected miss for unknown user")
	}
}

func TestActorNumbersSorted(t *testing.T) {
	reg := NewRegistry()
	for _, nr := range []int{5, 1, 3} {
		_ = reg.Insert(record(nr, "usr", "addr"))
	}
	got := reg.ActorNumbers()
	want := []int{1, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestMarkInstantiatedOnlyOnce(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Insert(record(1, "usr_a", "203.0.113.1"))

	if err := reg.MarkInstantiated(1); err != nil {
		t.Fatalf("first instantiation: %v", err)
	}
	err := reg.MarkInstantiated(1)
	if !apperrors.IsCode(err, apperrors.CodeSessionAlreadySpawned) {
		t.Fatalf("expected already-spawned error, got %v", err)
	}
	rec, _ := reg.Get(1)
	if !rec.Instantiated {
		t.Fatal("instantiated flag must remain set")
	}

	if err := reg.MarkInstantiated(42); !apperrors.IsCode(err, apperrors.CodeSessionActorNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestSetOverriddenProperty(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Insert(record(1, "usr_a", "203.0.113.1"))

	if err := reg.SetOverriddenProperty(1, "avatarEyeHeight", 5.0); err != nil {
		t.Fatalf("set overridden property: %v", err)
	}
	rec, _ := reg.Get(1)
	if rec.OverriddenProperties["avatarEyeHeight"] != 5.0 {
		t.Fatalf("expected override to be stored, got %v", rec.OverriddenProperties)
	}

	// Mutating the returned copy must not leak into the registry.
	rec.OverriddenProperties["avatarEyeHeight"] = 0.0
	again, _ := reg.Get(1)
	if again.OverriddenProperties["avatarEyeHeight"] != 5.0 {
		t.Fatal("registry state leaked through returned copy")
	}

	if err := reg.SetOverriddenProperty(9, "k", "v"); !apperrors.IsCode(err, apperrors.CodeSessionActorNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestSnapshotOrdered(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Insert(record(4, "usr_d", "a"))
	_ = reg.Insert(record(2, "usr_b", "a"))

	snap := reg.Snapshot()
	if len(snap) != 2 || snap[0].ActorNumber != 2 || snap[1].ActorNumber != 4 {
		t.Fatalf("expected ordered snapshot, got %v", snap)
	}
}
