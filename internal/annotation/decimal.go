package annotation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Decimal is a float written as a JSON string with three decimal places.
// It reads back from either a string or a number.
type Decimal float64

// String returns the fixed three-place representation.
func (d Decimal) String() string {
	return strconv.FormatFloat(float64(d), 'f', 3, 64)
}

// MarshalJSON implements json.Marshaler.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid decimal %s: %w", data, err)
	}
	*d = Decimal(f)
	return nil
}

// Score is a visibility score in [0, 1]. Scores of exactly 0 or 1 are
// written as JSON booleans, anything else as a number.
type Score float64

// ScoreOf converts a visibility flag to a score.
func ScoreOf(visible bool) Score {
	if visible {
		return 1
	}
	return 0
}

// MarshalJSON implements json.Marshaler.
func (s Score) MarshalJSON() ([]byte, error) {
	switch s {
	case 0:
		return []byte("false"), nil
	case 1:
		return []byte("true"), nil
	default:
		return json.Marshal(float64(s))
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Score) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true":
		*s = 1
		return nil
	case "false", "null":
		*s = 0
		return nil
	}
	var d Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid visibility %s", data)
	}
	*s = Score(d)
	return nil
}
