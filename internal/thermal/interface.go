package thermal

// Zone is a fully resolved thermal zone. ID is the zone's index in the
// manager's discovery order.
type Zone struct {
	ID          int
	Type        string
	Temperature float64
	TripPoints  []TripPoint
}

// TripPoint is a configured threshold of a zone.
type TripPoint struct {
	ID          int
	Temperature float64
	Type        string
}
