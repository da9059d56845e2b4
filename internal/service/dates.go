package service

import (
	"time"
)

const dayLayout = "2006-01-02"

// dayRange parses two calendar days and returns the half-open interval
// [from 00:00, day after to 00:00) in loc. Either bound may be empty.
func dayRange(from, to string, loc *time.Location) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if from != "" {
		t, err := time.ParseInLocation(dayLayout, from, loc)
		if err != nil {
			return nil, nil, invalid("Fecha inválida, use el formato AAAA-MM-DD")
		}
		start = &t
	}
	if to != "" {
		t, err := time.ParseInLocation(dayLayout, to, loc)
		if err != nil {
			return nil, nil, invalid("Fecha inválida, use el formato AAAA-MM-DD")
		}
		t = t.AddDate(0, 0, 1)
		end = &t
	}
	if start != nil && end != nil && !end.After(*start) {
		return nil, nil, invalid("La fecha final no puede ser anterior a la inicial")
	}
	return start, end, nil
}
