package nhl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// StatValue is a closed tagged variant for upstream stat fields that are
// typed loosely (sometimes a number, sometimes a string, sometimes null).
// It is decoded explicitly rather than into an open any.
type StatValue struct {
	kind statKind
	num  float64
	str  string
}

type statKind uint8

const (
	statNull statKind = iota
	statNumber
	statString
)

func NumberStat(v float64) StatValue { return StatValue{kind: statNumber, num: v} }
func StringStat(v string) StatValue  { return StatValue{kind: statString, str: v} }

func (v StatValue) IsNull() bool { return v.kind == statNull }

// Number returns the numeric value and whether the variant holds one.
func (v StatValue) Number() (float64, bool) {
	if v.kind != statNumber {
		return 0, false
	}
	return v.num, true
}

// String renders the value for display; null renders as "".
func (v StatValue) String() string {
	switch v.kind {
	case statNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case statString:
		return v.str
	default:
		return ""
	}
}

func (v *StatValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = StatValue{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = StatValue{kind: statString, str: s}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("stat value: not string/number/null: %w", err)
	}
	*v = StatValue{kind: statNumber, num: f}
	return nil
}

func (v StatValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case statNumber:
		return json.Marshal(v.num)
	case statString:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}
