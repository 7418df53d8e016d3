package models

// Coordinates represents a geographical point defined by its longitude and latitude.
type Coordinates struct {
	Longitude float64 // Longitude of the geographical point.
	Latitude  float64 // Latitude of the geographical point.
}

// Position converts the coordinates into the [lat, lng] pair stored on a marker.
func (c Coordinates) Position() Position {
	return Position{c.Latitude, c.Longitude}
}
