package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// NormalizeOptions selects the policy for inputs that have no exact mapping.
type NormalizeOptions struct {
	// SizeFallback maps unrecognized size codes to SizeSmallLarge and records a
	// warning instead of failing the forecast.
	SizeFallback bool
}

// Normalize maps one raw forecast to its canonical record. The zone label is
// attached to every diagnostic and error. Warnings are appended to diags even
// when an error is returned; diags may be nil.
func Normalize(zone string, raw RawForecast, opts NormalizeOptions, diags *Diagnostics) (CanonicalForecast, error) {
	if diags == nil {
		diags = &Diagnostics{}
	}

	zoneID, err := normalizeZoneID(raw.ForecastZone)
	if err != nil {
		return CanonicalForecast{}, fieldError(zone, err)
	}

	if raw.CreatedAt == nil {
		return CanonicalForecast{}, missing(zone, "created_at")
	}
	forecastDate, err := ParseCreatedAt(*raw.CreatedAt)
	if err != nil {
		return CanonicalForecast{}, &NormalizeError{Zone: zone, Field: "created_at", Err: fmt.Errorf("%w: %v", ErrInvalidField, err)}
	}

	if raw.BottomLine == nil {
		return CanonicalForecast{}, missing(zone, "bottom_line")
	}

	upper, middle, lower, err := normalizeDanger(zone, raw.Danger, diags)
	if err != nil {
		return CanonicalForecast{}, fieldError(zone, err)
	}

	problems := make([]CanonicalProblem, 0, len(raw.Problems))
	for i, p := range raw.Problems {
		problem, err := normalizeProblem(zone, i, p, opts, diags)
		if err != nil {
			return CanonicalForecast{}, fieldError(zone, err)
		}
		problems = append(problems, problem)
	}

	return CanonicalForecast{
		ZoneID:              zoneID,
		ForecastDate:        forecastDate,
		BottomLine:          *raw.BottomLine,
		OverallDanger:       OverallDanger(upper, middle, lower),
		DangerAboveTreeline: upper,
		DangerAtTreeline:    middle,
		DangerBelowTreeline: lower,
		Problems:            problems,
	}, nil
}

// OverallDanger is the sum of the three band ratings.
func OverallDanger(upper, middle, lower uint32) uint32 {
	return upper + middle + lower
}

// fieldErr carries the failing field up to Normalize, which adds the zone.
type fieldErr struct {
	field string
	err   error
}

func (e *fieldErr) Error() string { return e.field + ": " + e.err.Error() }

func fieldError(zone string, err error) error {
	var fe *fieldErr
	if errors.As(err, &fe) {
		return &NormalizeError{Zone: zone, Field: fe.field, Err: fe.err}
	}
	return &NormalizeError{Zone: zone, Err: err}
}

func missing(zone, field string) error {
	return &NormalizeError{Zone: zone, Field: field, Err: ErrMissingField}
}

func normalizeZoneID(zones []RawForecastZone) (uint32, error) {
	if len(zones) == 0 {
		return 0, &fieldErr{field: "forecast_zone", err: ErrMissingField}
	}
	id := zones[0].ID
	if id == nil {
		return 0, &fieldErr{field: "forecast_zone[0].id", err: ErrMissingField}
	}
	if *id < 0 || int64(*id) > math.MaxUint32 {
		return 0, &fieldErr{field: "forecast_zone[0].id", err: fmt.Errorf("%w: id %d out of range", ErrInvalidField, *id)}
	}
	return uint32(*id), nil
}

// normalizeDanger reads the first (current day) danger entry and returns the
// upper, middle and lower ratings.
func normalizeDanger(zone string, ratings []RawDangerRating, diags *Diagnostics) (upper, middle, lower uint32, err error) {
	if len(ratings) == 0 {
		return 0, 0, 0, &fieldErr{field: "danger", err: ErrMissingField}
	}
	current := ratings[0]

	bands := []struct {
		field string
		value *int
		out   *uint32
	}{
		{"danger[0].upper", current.Upper, &upper},
		{"danger[0].middle", current.Middle, &middle},
		{"danger[0].lower", current.Lower, &lower},
	}
	for _, b := range bands {
		if b.value == nil {
			return 0, 0, 0, &fieldErr{field: b.field, err: ErrMissingField}
		}
		if *b.value < 0 {
			return 0, 0, 0, &fieldErr{field: b.field, err: fmt.Errorf("%w: negative rating %d", ErrInvalidField, *b.value)}
		}
		if int64(*b.value) > math.MaxUint32 {
			return 0, 0, 0, &fieldErr{field: b.field, err: fmt.Errorf("%w: rating %d out of range", ErrInvalidField, *b.value)}
		}
		if !DangerLevel(*b.value).Valid() {
			diags.Warn(DiagDangerOutOfScale, zone, b.field, "danger rating %d is outside the 0-5 scale", *b.value)
		}
		*b.out = uint32(*b.value)
	}
	// The overall rating is the exact sum, so it must fit as well.
	if uint64(upper)+uint64(middle)+uint64(lower) > math.MaxUint32 {
		return 0, 0, 0, &fieldErr{field: "danger[0]", err: fmt.Errorf("%w: ratings sum past %d", ErrInvalidField, uint32(math.MaxUint32))}
	}
	return upper, middle, lower, nil
}

func normalizeProblem(zone string, index int, p RawProblem, opts NormalizeOptions, diags *Diagnostics) (CanonicalProblem, error) {
	prefix := fmt.Sprintf("forecast_avalanche_problems[%d]", index)

	aspects, elevations := accumulateLocations(zone, prefix, p.Location, diags)

	if p.Name == nil {
		return CanonicalProblem{}, &fieldErr{field: prefix + ".name", err: ErrMissingField}
	}
	problemType, err := ParseProblemType(*p.Name)
	if err != nil {
		return CanonicalProblem{}, &fieldErr{field: prefix + ".name", err: err}
	}

	if p.Likelihood == nil {
		return CanonicalProblem{}, &fieldErr{field: prefix + ".likelihood", err: ErrMissingField}
	}
	likelihood, err := ParseLikelihood(*p.Likelihood)
	if err != nil {
		return CanonicalProblem{}, &fieldErr{field: prefix + ".likelihood", err: err}
	}

	size, err := ParseSize(p.Size)
	if err != nil {
		if !opts.SizeFallback {
			return CanonicalProblem{}, &fieldErr{field: prefix + ".size", err: err}
		}
		diags.Warn(DiagSizeFallback, zone, prefix+".size", "size codes %q not recognized, using %s", p.Size, SizeSmallLarge)
		size = SizeSmallLarge
	}

	var notes string
	if p.Discussion != nil {
		notes = *p.Discussion
	}

	return CanonicalProblem{
		AdditionalNotes: notes,
		Aspects:         aspects,
		Elevations:      elevations,
		ProblemType:     problemType,
		Likelihood:      likelihood,
		Size:            size,
	}, nil
}

// accumulateLocations ORs the aspect and elevation of every "<aspect> <elevation>"
// descriptor. Unrecognized tokens are reported and skipped.
func accumulateLocations(zone, prefix string, descriptors []string, diags *Diagnostics) (AspectFlags, ElevationFlags) {
	aspects, elevations := AspectNone, ElevationNone
	for i, descriptor := range descriptors {
		field := fmt.Sprintf("%s.location[%d]", prefix, i)
		tokens := strings.Fields(descriptor)

		if len(tokens) > 0 {
			if a, ok := ParseAspect(tokens[0]); ok {
				aspects |= a
			} else {
				diags.Warn(DiagUnknownAspect, zone, field, "unrecognized aspect %q", tokens[0])
			}
		}
		if len(tokens) > 1 {
			if e, ok := ParseElevation(tokens[1]); ok {
				elevations |= e
			} else {
				diags.Warn(DiagUnknownElevation, zone, field, "unrecognized elevation %q", tokens[1])
			}
		}
	}
	return aspects, elevations
}
