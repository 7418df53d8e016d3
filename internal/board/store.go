// Package board holds the marker state of an interactive session and the
// create/edit/delete flow that changes it.
package board

import (
	"context"
	"sync"

	"github.com/UnknownOlympus/waypoint/internal/gateway"
	"github.com/UnknownOlympus/waypoint/internal/models"
)

// Gateway persists whole marker collections.
type Gateway interface {
	Get(ctx context.Context) gateway.Result
	Save(ctx context.Context, markers models.Collection) gateway.Result
	DeleteOne(ctx context.Context, id int64) gateway.Result
}

// Store is the ordered in-memory marker collection of a session.
type Store struct {
	gateway Gateway

	mu      sync.Mutex
	markers models.Collection
}

// NewStore creates an empty store backed by gw.
func NewStore(gw Gateway) *Store {
	return &Store{gateway: gw, markers: models.Collection{}}
}

// Load replaces the collection with what the gateway returns.
func (s *Store) Load(ctx context.Context) gateway.Result {
	result := s.gateway.Get(ctx)

	s.mu.Lock()
	s.markers = result.Markers.Clone()
	s.mu.Unlock()

	return result
}

// Markers returns a copy of the collection.
func (s *Store) Markers() models.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.markers.Clone()
}

// Find returns the marker with the given id.
func (s *Store) Find(id int64) (models.Marker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.markers.Find(id)
}

// Add appends marker and saves the whole collection. The marker joins the
// session state only when the gateway reports the save as done.
func (s *Store) Add(ctx context.Context, marker models.Marker) gateway.Result {
	s.mu.Lock()
	updated := append(s.markers.Clone(), marker)
	s.mu.Unlock()

	result := s.gateway.Save(ctx, updated.Clone())
	if result.OK() {
		s.commit(updated)
	}

	return result
}

// Update replaces the title, description and address of the marker with
// marker.ID. Position and id stay as they were. Session state changes only
// when the gateway reports the save as done.
func (s *Store) Update(ctx context.Context, marker models.Marker) (gateway.Result, error) {
	s.mu.Lock()
	updated := s.markers.Clone()
	s.mu.Unlock()

	found := false
	for i := range updated {
		if updated[i].ID == marker.ID {
			updated[i].Title = marker.Title
			updated[i].Description = marker.Description
			updated[i].Address = marker.Address
			found = true
		}
	}
	if !found {
		return gateway.Result{}, ErrMarkerNotFound
	}

	result := s.gateway.Save(ctx, updated.Clone())
	if result.OK() {
		s.commit(updated)
	}

	return result, nil
}

func (s *Store) commit(markers models.Collection) {
	s.mu.Lock()
	s.markers = markers
	s.mu.Unlock()
}

// Delete removes the marker through the gateway. Local state changes only
// when the gateway reports the deletion as done.
func (s *Store) Delete(ctx context.Context, id int64) gateway.Result {
	result := s.gateway.DeleteOne(ctx, id)
	if !result.OK() {
		return result
	}

	s.mu.Lock()
	s.markers = s.markers.Without(id)
	s.mu.Unlock()

	return result
}
