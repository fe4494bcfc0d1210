package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DangerLevel is a rating on the North American Avalanche Danger Scale.
type DangerLevel int

const (
	DangerNoRating DangerLevel = iota
	DangerLow
	DangerModerate
	DangerConsiderable
	DangerHigh
	DangerExtreme
)

var dangerLevelNames = map[DangerLevel]string{
	DangerNoRating:     "No Rating",
	DangerLow:          "Low",
	DangerModerate:     "Moderate",
	DangerConsiderable: "Considerable",
	DangerHigh:         "High",
	DangerExtreme:      "Extreme",
}

func (d DangerLevel) String() string {
	if name, ok := dangerLevelNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", int(d))
}

// Valid reports whether d is on the 0-5 scale.
func (d DangerLevel) Valid() bool {
	return d >= DangerNoRating && d <= DangerExtreme
}

// ProblemType enumerates the avalanche problem vocabulary. The ordinal is the
// wire value.
type ProblemType uint32

const (
	ProblemNone ProblemType = iota
	ProblemWindSlab
	ProblemStormSlab
	ProblemPersistentSlab
	ProblemLooseDry
	ProblemPersistentWeakLayer
	ProblemCorniceFall
	ProblemGlide
	ProblemWetSnow
)

// problemTypes is keyed by the normalized problem name, see vocabularyKey.
var problemTypes = map[string]ProblemType{
	"windslab":            ProblemWindSlab,
	"stormslab":           ProblemStormSlab,
	"persistentslab":      ProblemPersistentSlab,
	"loosedry":            ProblemLooseDry,
	"persistentweaklayer": ProblemPersistentWeakLayer,
	"cornicefall":         ProblemCorniceFall,
	"glide":               ProblemGlide,
	"wetloose":            ProblemWetSnow,
}

var problemTypeNames = map[ProblemType]string{
	ProblemNone:                "None",
	ProblemWindSlab:            "Wind Slab",
	ProblemStormSlab:           "Storm Slab",
	ProblemPersistentSlab:      "Persistent Slab",
	ProblemLooseDry:            "Loose Dry",
	ProblemPersistentWeakLayer: "Persistent Weak Layer",
	ProblemCorniceFall:         "Cornice Fall",
	ProblemGlide:               "Glide",
	ProblemWetSnow:             "Wet Snow",
}

func (p ProblemType) String() string {
	if name, ok := problemTypeNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", uint32(p))
}

// ParseProblemType matches a free-text problem name ("Wind Slab") against the
// fixed vocabulary. There is no default: unknown names return ErrUnknownProblemType.
func ParseProblemType(name string) (ProblemType, error) {
	key := vocabularyKey(name)
	if p, ok := problemTypes[key]; ok {
		return p, nil
	}
	return ProblemNone, fmt.Errorf("%w: %q", ErrUnknownProblemType, key)
}

// Likelihood enumerates how likely avalanches of a problem are.
type Likelihood uint32

const (
	LikelihoodNone Likelihood = iota
	LikelihoodUnlikely
	LikelihoodPossible
	LikelihoodLikely
	LikelihoodVeryLikely
	LikelihoodCertain
)

var likelihoods = map[string]Likelihood{
	"unlikely":   LikelihoodUnlikely,
	"possible":   LikelihoodPossible,
	"likely":     LikelihoodLikely,
	"verylikely": LikelihoodVeryLikely,
	"certain":    LikelihoodCertain,
}

var likelihoodNames = map[Likelihood]string{
	LikelihoodNone:       "None",
	LikelihoodUnlikely:   "Unlikely",
	LikelihoodPossible:   "Possible",
	LikelihoodLikely:     "Likely",
	LikelihoodVeryLikely: "Very Likely",
	LikelihoodCertain:    "Certain",
}

func (l Likelihood) String() string {
	if name, ok := likelihoodNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", uint32(l))
}

// ParseLikelihood matches a free-text likelihood ("Very Likely") against the
// fixed vocabulary. Unknown labels return ErrUnknownLikelihood.
func ParseLikelihood(label string) (Likelihood, error) {
	key := vocabularyKey(label)
	if l, ok := likelihoods[key]; ok {
		return l, nil
	}
	return LikelihoodNone, fmt.Errorf("%w: %q", ErrUnknownLikelihood, key)
}

// Size enumerates the destructive-size range of a problem.
type Size uint32

const (
	SizeSmallLarge Size = iota
	SizeLargeVeryLarge
	SizeVeryLargeHistoric
)

var sizeNames = map[Size]string{
	SizeSmallLarge:        "Small to Large",
	SizeLargeVeryLarge:    "Large to Very Large",
	SizeVeryLargeHistoric: "Very Large to Historic",
}

func (s Size) String() string {
	if name, ok := sizeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", uint32(s))
}

// ParseSize maps a two-entry size-code list to a Size. Codes are compared
// exactly. Any other pairing, including a list with fewer than two entries,
// returns ErrUnknownSize.
func ParseSize(codes []string) (Size, error) {
	if len(codes) < 2 {
		return SizeSmallLarge, fmt.Errorf("%w: %q", ErrUnknownSize, codes)
	}
	lo, hi := codes[0], codes[1]
	switch {
	case lo == "1" && hi == "2":
		return SizeSmallLarge, nil
	case lo == "2" && hi == "3":
		return SizeLargeVeryLarge, nil
	case lo == "3" && hi == "4":
		return SizeVeryLargeHistoric, nil
	default:
		return SizeSmallLarge, fmt.Errorf("%w: %q", ErrUnknownSize, codes)
	}
}

// AspectFlags is a bit set over the eight compass octants.
type AspectFlags uint8

const (
	AspectNorth AspectFlags = 1 << iota
	AspectNorthwest
	AspectWest
	AspectSouthwest
	AspectSouth
	AspectSoutheast
	AspectEast
	AspectNortheast

	AspectNone AspectFlags = 0
)

var aspectTokens = map[string]AspectFlags{
	"north":     AspectNorth,
	"northwest": AspectNorthwest,
	"west":      AspectWest,
	"southwest": AspectSouthwest,
	"south":     AspectSouth,
	"southeast": AspectSoutheast,
	"east":      AspectEast,
	"northeast": AspectNortheast,
}

// aspectOrder lists aspects in bit order for String.
var aspectOrder = []struct {
	flag AspectFlags
	name string
}{
	{AspectNorth, "north"},
	{AspectNorthwest, "northwest"},
	{AspectWest, "west"},
	{AspectSouthwest, "southwest"},
	{AspectSouth, "south"},
	{AspectSoutheast, "southeast"},
	{AspectEast, "east"},
	{AspectNortheast, "northeast"},
}

// ParseAspect maps a location token such as "north" to its flag.
func ParseAspect(token string) (AspectFlags, bool) {
	a, ok := aspectTokens[token]
	return a, ok
}

// Has reports whether every bit of other is set in a.
func (a AspectFlags) Has(other AspectFlags) bool {
	return a&other == other
}

func (a AspectFlags) String() string {
	if a == AspectNone {
		return "none"
	}
	names := make([]string, 0, len(aspectOrder))
	for _, o := range aspectOrder {
		if a.Has(o.flag) {
			names = append(names, o.name)
		}
	}
	return strings.Join(names, "|")
}

// ElevationFlags is a bit set over the three elevation bands.
type ElevationFlags uint8

const (
	ElevationBelowTreeline ElevationFlags = 1 << iota
	ElevationAtTreeline
	ElevationAboveTreeline

	ElevationNone ElevationFlags = 0
)

var elevationTokens = map[string]ElevationFlags{
	"upper":  ElevationAboveTreeline,
	"middle": ElevationAtTreeline,
	"lower":  ElevationBelowTreeline,
}

var elevationOrder = []struct {
	flag ElevationFlags
	name string
}{
	{ElevationBelowTreeline, "below_treeline"},
	{ElevationAtTreeline, "at_treeline"},
	{ElevationAboveTreeline, "above_treeline"},
}

// ParseElevation maps a location token such as "upper" to its flag.
func ParseElevation(token string) (ElevationFlags, bool) {
	e, ok := elevationTokens[token]
	return e, ok
}

// Has reports whether every bit of other is set in e.
func (e ElevationFlags) Has(other ElevationFlags) bool {
	return e&other == other
}

func (e ElevationFlags) String() string {
	if e == ElevationNone {
		return "none"
	}
	names := make([]string, 0, len(elevationOrder))
	for _, o := range elevationOrder {
		if e.Has(o.flag) {
			names = append(names, o.name)
		}
	}
	return strings.Join(names, "|")
}

// vocabularyKey lower-cases s and removes all whitespace: "Very Likely" -> "verylikely".
func vocabularyKey(s string) string {
	return strings.Join(strings.Fields(cases.Lower(language.Und).String(s)), "")
}
