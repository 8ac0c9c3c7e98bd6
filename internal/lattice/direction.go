package lattice

import "fmt"

// Direction is a compass direction to a neighbouring cell. The numeric order
// is the order neighbour keys are written to the image.
type Direction int

const (
	North Direction = iota
	West
	South
	East
	NorthWest
	SouthWest
	SouthEast
	NorthEast

	numDirections = 8
)

var directionNames = [numDirections]string{"N", "W", "S", "E", "NW", "SW", "SE", "NE"}

// Directions lists every direction in image order.
func Directions() [numDirections]Direction {
	return [numDirections]Direction{North, West, South, East, NorthWest, SouthWest, SouthEast, NorthEast}
}

func (d Direction) Valid() bool {
	return d >= 0 && d < numDirections
}

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection accepts the short compass names N, W, S, E, NW, SW, SE, NE.
func ParseDirection(s string) (Direction, error) {
	for i, name := range directionNames {
		if name == s {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("lattice: unknown direction %q", s)
}
