package rewards

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const JackpotLabel = "JACKPOT"

// Slice is one segment of the wheel. A jackpot slice has no fixed value;
// its award is drawn from the wheel's jackpot range.
type Slice struct {
	Label   string `json:"label"`
	Value   int64  `json:"value,omitempty"`
	Jackpot bool   `json:"jackpot,omitempty"`
}

// UnmarshalJSON accepts 100, "JACKPOT" or {"label":"100","value":100}.
func (s *Slice) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Slice{Label: strconv.FormatInt(n, 10), Value: n}
		return nil
	}
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		if !strings.EqualFold(label, JackpotLabel) {
			return fmt.Errorf("unknown slice %q", label)
		}
		*s = Slice{Label: JackpotLabel, Jackpot: true}
		return nil
	}
	type plain Slice
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Slice(p)
	if s.Label == "" {
		if s.Jackpot {
			s.Label = JackpotLabel
		} else {
			s.Label = strconv.FormatInt(s.Value, 10)
		}
	}
	return nil
}

// Wheel is the single ordered slice table used both to draw a prize and to
// render the wheel. The index returned by a spin points into Slices.
type Wheel struct {
	Slices     []Slice `json:"slices"`
	JackpotMin int64   `json:"jackpot_min"`
	JackpotMax int64   `json:"jackpot_max"`
}

func DefaultWheel() Wheel {
	return Wheel{
		Slices: []Slice{
			{Label: "10", Value: 10},
			{Label: "20", Value: 20},
			{Label: "50", Value: 50},
			{Label: "100", Value: 100},
			{Label: "200", Value: 200},
			{Label: "500", Value: 500},
			{Label: "1000", Value: 1000},
			{Label: JackpotLabel, Jackpot: true},
		},
		JackpotMin: 2000,
		JackpotMax: 5000,
	}
}

func (w Wheel) Validate() error {
	if len(w.Slices) == 0 {
		return errors.New("wheel has no slices")
	}
	jackpot := false
	for i, s := range w.Slices {
		if s.Jackpot {
			jackpot = true
			continue
		}
		if s.Value <= 0 {
			return fmt.Errorf("slice %d (%s) has no positive value", i, s.Label)
		}
	}
	if jackpot && (w.JackpotMin <= 0 || w.JackpotMax < w.JackpotMin) {
		return fmt.Errorf("invalid jackpot range [%d, %d]", w.JackpotMin, w.JackpotMax)
	}
	return nil
}
