package domain

import (
	"encoding/json"
	"fmt"
)

// Percent is a share of the total record count. It is invalid when the
// total is zero, which renders as N/A instead of dividing by zero.
type Percent struct {
	Value float64
	Valid bool
}

// PercentOf returns 100*count/total, or an invalid Percent for total == 0.
func PercentOf(count, total int) Percent {
	if total <= 0 {
		return Percent{}
	}
	return Percent{Value: 100 * float64(count) / float64(total), Valid: true}
}

func (p Percent) String() string {
	if !p.Valid {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", p.Value)
}

func (p Percent) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

func (p *Percent) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = Percent{}
		return nil
	}
	if err := json.Unmarshal(b, &p.Value); err != nil {
		return err
	}
	p.Valid = true
	return nil
}

// Excerpt truncates s to at most n runes.
func Excerpt(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
