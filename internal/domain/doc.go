// Package domain models avalanche forecasts published through the
// avalanche.org public product API and the compact canonical record this
// service republishes downstream.
//
// # Data Source
//
// Each regional avalanche center publishes one forecast product per zone at
//
//	https://api.avalanche.org/v2/public/product?type=forecast&center_id=<CENTER>&zone_id=<ID>
//
// The response is loosely typed: most scalars may be absent or null, and the
// list fields (danger, forecast_zone, forecast_avalanche_problems) may be
// missing entirely. [RawForecast] mirrors that shape with pointer fields so
// absence is distinguishable from a zero value.
//
// # Upstream Conventions
//
// Danger ratings:
//
//	"danger" is a list of per-day entries. Only the first entry is authoritative;
//	later entries (e.g. "tomorrow") are ignored. Each entry carries lower
//	(below treeline), middle (near treeline) and upper (above treeline) ratings
//	on the North American Avalanche Danger Scale, 0 (no rating) to 5 (extreme).
//
// Location descriptors:
//
//	"<aspect> <elevation>"  →  e.g. "north upper"
//	Aspects: north, northeast, east, southeast, south, southwest, west, northwest.
//	Elevations: upper (above treeline), middle (near treeline), lower (below treeline).
//	A problem lists one descriptor per exposed aspect/elevation cell.
//
// Problem names and likelihoods are free text ("Wind Slab", "Very Likely").
// They are matched after lower-casing and removing all whitespace.
//
// Size:
//
//	A two-entry list of destructive-size codes, each a single digit "1".."4":
//	["1","2"] small to large, ["2","3"] large to very large,
//	["3","4"] very large to historic.
//
// Timestamps:
//
//	"created_at" uses "YYYY-MM-DD HH:MM:SS" with no zone. It is kept as a naive
//	local date-time, see [LocalDateTime].
//
// # Canonical Record
//
// [Normalize] maps a RawForecast to a [CanonicalForecast]. Aspect and
// elevation exposure are bit sets ([AspectFlags], [ElevationFlags]) OR-ed
// across every descriptor of a problem, so descriptor order never matters.
// Problem type, likelihood and size are closed enumerations serialized as
// their ordinal.
//
// Overall danger is the plain sum of the three band ratings of the first
// danger entry. It is a simple aggregate for sorting and thresholds, not a
// maximum or a weighted score.
//
// Missing required fields and unrecognized problem-type, likelihood or size
// vocabulary fail the forecast with a [*NormalizeError]. Unrecognized aspect
// or elevation tokens only produce a warning [Diagnostic].
package domain
