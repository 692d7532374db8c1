// Package match ranks donors for a requester by blood type, availability and
// great-circle distance. Everything here is pure: no I/O, no shared state.
package match

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"bloodlink/pkg/types"
)

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b types.Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	// rounding can push h a hair past 1 for antipodal points
	h = math.Min(math.Max(h, 0), 1)

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Match filters donors against q and orders them by ascending distance from
// the requester. Donors without a computable distance keep their input order
// after every donor that has one. Malformed donors drop out of the stage that
// needs the missing field; Match never fails.
func Match(q types.MatchQuery, donors []*types.Donor) types.MatchResult {
	bloodType, filterBloodType := activeFilter(q.BloodType)
	availability, filterAvailability := activeFilter(q.AvailabilityFilter)

	var origin *types.Location
	if q.RequesterLocation != nil && q.RequesterLocation.Valid() {
		origin = q.RequesterLocation
	}

	result := make(types.MatchResult, 0, len(donors))
	for _, donor := range donors {
		if donor == nil {
			continue
		}

		if filterBloodType && string(donor.BloodType) != bloodType {
			continue
		}

		if filterAvailability && string(donor.Availability) != availability {
			continue
		}

		distance := distanceTo(origin, donor)

		if q.MaxDistanceKm != nil {
			if distance == nil || *distance > *q.MaxDistanceKm {
				continue
			}
		}

		result = append(result, types.DonorMatch{Donor: donor, DistanceKm: distance})
	}

	slices.SortStableFunc(result, compareDistance)

	return result
}

func compareDistance(a, b types.DonorMatch) int {
	switch {
	case a.DistanceKm == nil && b.DistanceKm == nil:
		return 0
	case a.DistanceKm == nil:
		return 1
	case b.DistanceKm == nil:
		return -1
	}
	return cmp.Compare(*a.DistanceKm, *b.DistanceKm)
}

func distanceTo(origin *types.Location, donor *types.Donor) *float64 {
	if origin == nil {
		return nil
	}

	loc, ok := donor.Location()
	if !ok || !loc.Valid() {
		return nil
	}

	d := Haversine(*origin, loc)
	return &d
}

// activeFilter trims v and reports whether it restricts the result.
func activeFilter(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, types.MatchWildcard) {
		return "", false
	}
	return v, true
}
