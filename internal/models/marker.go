package models

import "encoding/json"

// Position is a [latitude, longitude] pair. It is serialized as a two-element JSON array.
type Position [2]float64

// Lat returns the latitude component.
func (p Position) Lat() float64 { return p[0] }

// Lng returns the longitude component.
func (p Position) Lng() float64 { return p[1] }

// Coordinates converts the pair into geocoding coordinates.
func (p Position) Coordinates() Coordinates {
	return Coordinates{Latitude: p[0], Longitude: p[1]}
}

// Marker is a user-created point annotation.
// ID and Position are fixed once the marker exists; edits touch only
// Title, Description and Address.
type Marker struct {
	ID          int64    `json:"id"`          // Creation time in Unix milliseconds.
	Position    Position `json:"position"`    // Where the pin was dropped.
	Title       string   `json:"title"`       // Non-empty title.
	Description string   `json:"description"` // Free text, may be empty.
	Address     string   `json:"address"`     // Reverse-geocoded address or the placeholder.
}

// Collection is an ordered sequence of markers. Order only matters for rendering.
type Collection []Marker

// MarshalJSON keeps an empty collection as [] instead of null.
func (c Collection) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}

	return json.Marshal([]Marker(c))
}

// Clone returns a copy that shares no backing array with c.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)

	return out
}

// Find returns the marker with the given id.
func (c Collection) Find(id int64) (Marker, bool) {
	for _, m := range c {
		if m.ID == id {
			return m, true
		}
	}

	return Marker{}, false
}

// Contains reports whether a marker with the given id exists.
func (c Collection) Contains(id int64) bool {
	_, ok := c.Find(id)
	return ok
}

// Without derives a new collection excluding every marker with the given id.
// When the id is absent the result equals c.
func (c Collection) Without(id int64) Collection {
	out := make(Collection, 0, len(c))
	for _, m := range c {
		if m.ID != id {
			out = append(out, m)
		}
	}

	return out
}
