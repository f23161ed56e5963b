package astro

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingAttribute marks a chart record that lacks a field the
// prompt renderer needs. Callers treat it as "skip this speaker".
var ErrMissingAttribute = errors.New("chart record missing attribute")

// BirthInput holds the raw strings collected from the user.
type BirthInput struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Place string `json:"place"`
}

// BirthMoment is the parsed birth input handed to the chart computer.
type BirthMoment struct {
	Day    int    `json:"day"`
	Month  int    `json:"month"`
	Year   int    `json:"year"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
	City   string `json:"city"`
}

// BodyRecord is the computed placement of one celestial body at the
// birth moment. Immutable once computed.
type BodyRecord struct {
	Name       string  `json:"name"`
	Quality    string  `json:"quality"`
	Element    string  `json:"element"`
	Sign       string  `json:"sign"`
	Position   float64 `json:"position"`
	House      string  `json:"house"`
	Retrograde bool    `json:"retrograde"`
}

// Validate reports the first attribute the record is missing.
func (r BodyRecord) Validate() error {
	for _, attr := range []struct {
		name  string
		value string
	}{
		{"name", r.Name},
		{"quality", r.Quality},
		{"element", r.Element},
		{"sign", r.Sign},
		{"house", r.House},
	} {
		if strings.TrimSpace(attr.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingAttribute, attr.name)
		}
	}
	return nil
}

// Chart maps lowercased celestial-body names to their records.
type Chart map[string]BodyRecord

// Lookup returns the record for a body by case-insensitive name.
func (c Chart) Lookup(body string) (BodyRecord, bool) {
	record, ok := c[strings.ToLower(body)]
	return record, ok
}
