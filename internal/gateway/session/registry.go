// Package session holds the authoritative in-memory table of admitted
// actors and their derived state for one room instance.
//
// Records are created by the admission flow, mutated by the moderation flow,
// and removed on departure. The host serializes all writing callbacks; the
// read-write lock exists only so the periodic announcer can read
// concurrently.
package session

import (
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/uyjulian/naoka-ng/internal/gateway/identity"
	apperrors "github.com/uyjulian/naoka-ng/internal/platform/errors"
)

// Record is the session state of one admitted actor.
type Record struct {
	ActorNumber int
	UserID      string
	Address     string
	Claims      identity.Claims
	// Instantiated flips true the first time the actor spawns its primary
	// in-room representation. It never reverts.
	Instantiated bool
	// OverriddenProperties layers sanitizer-forced values over what the
	// peer submitted. May be empty.
	OverriddenProperties map[string]any
}

func (r Record) clone() Record {
	r.OverriddenProperties = maps.Clone(r.OverriddenProperties)
	return r
}

// Registry is the session table for one room instance, keyed by the
// host-assigned actor number.
type Registry struct {
	mu      sync.RWMutex
	records map[int]Record
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: map[int]Record{}}
}

// Insert adds a record. Actor numbers are never reused while a prior record
// for the number exists; a duplicate insert is an error.
func (g *Registry) Insert(rec Record) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.records[rec.ActorNumber]; exists {
		return apperrors.WithMetadata(
			apperrors.CodeSessionDuplicateActor,
			fmt.Sprintf("actor %d already has a session record", rec.ActorNumber),
			map[string]string{"Actor": fmt.Sprintf("%d", rec.ActorNumber)},
		)
	}
	g.records[rec.ActorNumber] = rec.clone()
	return nil
}

// Remove deletes the record for an actor number. Removing an absent actor
// is a no-op.
func (g *Registry) Remove(actorNumber int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.records, actorNumber)
}

// Get returns a copy of the record for an actor number.
func (g *Registry) Get(actorNumber int) (Record, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rec, ok := g.records[actorNumber]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// FindByUserID returns a copy of the first record with the given user
// identity.
func (g *Registry) FindByUserID(userID string) (Record, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, rec := range g.records {
		if rec.UserID == userID {
			return rec.clone(), true
		}
	}
	return Record{}, false
}

// Snapshot returns copies of all records ordered by actor number.
func (g *Registry) Snapshot() []Record {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Record, 0, len(g.records))
	for _, rec := range g.records {
		out = append(out, rec.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorNumber < out[j].ActorNumber })
	return out
}

// ActorNumbers returns the present actor numbers in ascending order.
func (g *Registry) ActorNumbers() []int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]int, 0, len(g.records))
	for nr := range g.records {
		out = append(out, nr)
	}
	sort.Ints(out)
	return out
}

// Count returns the number of admitted actors.
func (g *Registry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records)
}

// MarkInstantiated flips the actor's instantiated flag false to true.
// A second call reports the already-spawned violation; the flag never
// reverts.
func (g *Registry) MarkInstantiated(actorNumber int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.records[actorNumber]
	if !ok {
		return apperrors.New(apperrors.CodeSessionActorNotFound,
			fmt.Sprintf("no session record for actor %d", actorNumber))
	}
	if rec.Instantiated {
		return apperrors.New(apperrors.CodeSessionAlreadySpawned, "Already instantiated")
	}
	rec.Instantiated = true
	g.records[actorNumber] = rec
	return nil
}

// SetOverriddenProperty layers one server-forced property value over the
// actor's submitted properties.
func (g *Registry) SetOverriddenProperty(actorNumber int, key string, value any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.records[actorNumber]
	if !ok {
		return apperrors.New(apperrors.CodeSessionActorNotFound,
			fmt.Sprintf("no session record for actor %d", actorNumber))
	}
	if rec.OverriddenProperties == nil {
		rec.OverriddenProperties = map[string]any{}
	}
	rec.OverriddenProperties[key] = value
	g.records[actorNumber] = rec
	return nil
}
