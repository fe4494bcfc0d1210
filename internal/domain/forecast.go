package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Zone identifies one monitored forecast zone and the center that issues it.
type Zone struct {
	Center string `toml:"center"`
	ID     int    `toml:"zone_id"`
	Name   string `toml:"name"`
}

func (z Zone) String() string {
	return fmt.Sprintf("%s/%d", z.Center, z.ID)
}

// RawForecast is the forecast product as received from the upstream API.
// Media, weather and center descriptors are decoded but unused downstream.
type RawForecast struct {
	ID                *int              `json:"id"`
	PublishedTime     *string           `json:"published_time"`
	ExpiresTime       *string           `json:"expires_time"`
	CreatedAt         *string           `json:"created_at"`
	UpdatedAt         *string           `json:"updated_at"`
	Author            *string           `json:"author"`
	ProductType       *string           `json:"product_type"`
	BottomLine        *string           `json:"bottom_line"`
	HazardDiscussion  *string           `json:"hazard_discussion"`
	WeatherDiscussion *string           `json:"weather_discussion"`
	Announcement      *string           `json:"announcement"`
	Status            *string           `json:"status"`
	Media             []RawMedia        `json:"media"`
	WeatherData       *RawWeatherData   `json:"weather_data"`
	AvalancheCenter   *RawCenter        `json:"avalanche_center"`
	Problems          []RawProblem      `json:"forecast_avalanche_problems"`
	Danger            []RawDangerRating `json:"danger"`
	ForecastZone      []RawForecastZone `json:"forecast_zone"`
}

// RawMedia references an image or video attached to the forecast.
type RawMedia struct {
	ID       *int         `json:"id"`
	URL      *RawMediaURL `json:"url"`
	Type     *string      `json:"type"`
	Title    *string      `json:"title"`
	Caption  *string      `json:"caption"`
	Favorite *bool        `json:"favorite"`
}

// RawMediaURL holds the rendition URLs of a media item.
type RawMediaURL struct {
	Large     *string `json:"large"`
	Medium    *string `json:"medium"`
	Original  *string `json:"original"`
	Thumbnail *string `json:"thumbnail"`
}

// RawWeatherData references the companion weather product.
type RawWeatherData struct {
	WeatherProductID *int `json:"weather_product_id"`
}

// RawCenter describes the issuing avalanche center.
type RawCenter struct {
	ID    *string `json:"id"`
	Name  *string `json:"name"`
	URL   *string `json:"url"`
	City  *string `json:"city"`
	State *string `json:"state"`
}

// RawProblem is one avalanche problem of a forecast.
type RawProblem struct {
	ID                 *int     `json:"id"`
	ForecastID         *int     `json:"forecast_id"`
	AvalancheProblemID *int     `json:"avalanche_problem_id"`
	Rank               *int     `json:"rank"`
	Likelihood         *string  `json:"likelihood"`
	Discussion         *string  `json:"discussion"`
	Location           []string `json:"location"` // "<aspect> <elevation>", e.g. "north upper"
	Size               []string `json:"size"`     // two single-digit codes, e.g. ["1","2"]
	Name               *string  `json:"name"`
	ProblemDescription *string  `json:"problem_description"`
	Icon               *string  `json:"icon"`
}

// RawDangerRating carries the band ratings for one validity day.
type RawDangerRating struct {
	Lower    *int    `json:"lower"`
	Middle   *int    `json:"middle"`
	Upper    *int    `json:"upper"`
	ValidDay *string `json:"valid_day"`
}

// RawForecastZone describes a zone the forecast applies to.
type RawForecastZone struct {
	ID     *int    `json:"id"`
	Name   *string `json:"name"`
	URL    *string `json:"url"`
	State  *string `json:"state"`
	ZoneID *string `json:"zone_id"`
	Config *string `json:"config"`
}

// FetchedForecast pairs a parsed upstream document with the configured zone it
// was requested for.
type FetchedForecast struct {
	Zone     Zone
	Forecast RawForecast
}

// CanonicalForecast is the normalized record published downstream.
type CanonicalForecast struct {
	ZoneID              uint32             `json:"zone_id"`
	ForecastDate        LocalDateTime      `json:"forecast_date"`
	BottomLine          string             `json:"bottom_line"`
	OverallDanger       uint32             `json:"overall_danger"`
	DangerAboveTreeline uint32             `json:"danger_above_treeline"`
	DangerAtTreeline    uint32             `json:"danger_at_treeline"`
	DangerBelowTreeline uint32             `json:"danger_below_treeline"`
	Problems            []CanonicalProblem `json:"avalanche_problems"`
}

// CanonicalProblem is the bit-packed, enumerated form of one avalanche problem.
type CanonicalProblem struct {
	AdditionalNotes string         `json:"additional_notes"`
	Aspects         AspectFlags    `json:"aspects"`
	Elevations      ElevationFlags `json:"elevations"`
	ProblemType     ProblemType    `json:"problem_type"`
	Likelihood      Likelihood     `json:"likelihood"`
	Size            Size           `json:"size"`
}

// CreatedAtLayout is the upstream "created_at" format.
const CreatedAtLayout = "2006-01-02 15:04:05"

// LocalDateTimeLayout is the wire format of a LocalDateTime.
const LocalDateTimeLayout = "2006-01-02T15:04:05"

// LocalDateTime is a date-time without a zone. The wall clock is stored in a
// UTC time.Time and serialized without an offset.
type LocalDateTime struct {
	time.Time
}

// ParseCreatedAt parses an upstream "created_at" value.
func ParseCreatedAt(s string) (LocalDateTime, error) {
	t, err := time.ParseInLocation(CreatedAtLayout, s, time.UTC)
	if err != nil {
		return LocalDateTime{}, err
	}
	return LocalDateTime{Time: t}, nil
}

func (t LocalDateTime) String() string {
	return t.Format(LocalDateTimeLayout)
}

func (t LocalDateTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.Format(LocalDateTimeLayout))), nil
}

func (t *LocalDateTime) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("local date-time: %w", err)
	}
	parsed, err := time.ParseInLocation(LocalDateTimeLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("local date-time: %w", err)
	}
	t.Time = parsed
	return nil
}
