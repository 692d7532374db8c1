package types

import "math"

// MatchWildcard disables the blood type or availability filter.
const MatchWildcard = "all"

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point is a finite coordinate on the globe.
func (l Location) Valid() bool {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lng) || math.IsInf(l.Lat, 0) || math.IsInf(l.Lng, 0) {
		return false
	}
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// MatchQuery is built per request. Zero values mean "no restriction".
type MatchQuery struct {
	RequesterLocation  *Location
	BloodType          string
	MaxDistanceKm      *float64
	AvailabilityFilter string
}

// MatchQueryForm is the query-string representation of a MatchQuery.
type MatchQueryForm struct {
	Lat           *float64 `form:"lat"`
	Lng           *float64 `form:"lng"`
	BloodType     string   `form:"blood_type"`
	MaxDistanceKm *float64 `form:"max_distance_km"`
	Availability  string   `form:"availability"`
}

func (f *MatchQueryForm) Query() MatchQuery {
	q := MatchQuery{
		BloodType:          f.BloodType,
		MaxDistanceKm:      f.MaxDistanceKm,
		AvailabilityFilter: f.Availability,
	}
	if f.Lat != nil && f.Lng != nil {
		q.RequesterLocation = &Location{Lat: *f.Lat, Lng: *f.Lng}
	}
	return q
}

type DonorMatch struct {
	Donor      *Donor   `json:"donor"`
	DistanceKm *float64 `json:"distanceKm"`
}

// MatchResult is ordered by ascending distance; donors without a distance trail.
type MatchResult []DonorMatch

func (r MatchResult) Donors() []*Donor {
	out := make([]*Donor, 0, len(r))
	for _, m := range r {
		out = append(out, m.Donor)
	}
	return out
}

// Public returns a copy safe to expose to other users.
func (r MatchResult) Public() MatchResult {
	out := make(MatchResult, 0, len(r))
	for _, m := range r {
		out = append(out, DonorMatch{Donor: m.Donor.Public(), DistanceKm: m.DistanceKm})
	}
	return out
}
