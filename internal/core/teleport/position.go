package teleport

// Position is a point in world space.
type Position [3]float64

// NewPosition builds a Position from its components.
func NewPosition(x, y, z float64) Position {
	return Position{x, y, z}
}

func (p Position) X() float64 { return p[0] }
func (p Position) Y() float64 { return p[1] }
func (p Position) Z() float64 { return p[2] }

// Add returns p+q.
func (p Position) Add(q Position) Position {
	return Position{p[0] + q[0], p[1] + q[1], p[2] + q[2]}
}
