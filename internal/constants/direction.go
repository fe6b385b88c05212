package constants

import (
	"database/sql/driver"
	"fmt"
)

// Direction is the traversal order a team follows through the fiches.
type Direction string

const (
	DirectionRed  Direction = "R"
	DirectionBlue Direction = "B"
)

// Directions lists every direction in a stable order.
var Directions = []Direction{DirectionRed, DirectionBlue}

func (d Direction) String() string { return string(d) }

func (d Direction) Valid() bool {
	return d == DirectionRed || d == DirectionBlue
}

// Scan implements the sql.Scanner interface
func (d *Direction) Scan(src interface{}) error {
	if src == nil {
		*d = ""
		return nil
	}
	switch v := src.(type) {
	case string:
		*d = Direction(v)
	case []byte:
		*d = Direction(v)
	default:
		return fmt.Errorf("Direction: cannot scan type %T", src)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (d Direction) Value() (driver.Value, error) { return string(d), nil }
