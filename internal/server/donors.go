package server

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"bloodlink/internal/geo"
	"bloodlink/internal/match"
	"bloodlink/pkg/types"

	"github.com/gorilla/websocket"
)

var errDonorsUnavailable = errors.New("donor list is unavailable")

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// parseMatchQuery reads the match filters from the query string. Coordinates
// are passed through untouched; invalid ones simply yield no distance.
func (s *Service) parseMatchQuery(r *http.Request) (types.MatchQuery, map[string]string) {
	fieldErrors := map[string]string{}

	var f types.MatchQueryForm
	if err := decoder.Decode(&f, r.URL.Query()); err != nil {
		fieldErrors["query"] = "Query parameters must be numbers where numbers are expected."
		return types.MatchQuery{}, fieldErrors
	}

	bloodType, ok := normalizeBloodTypeParam(f.BloodType)
	if !ok {
		fieldErrors["blood_type"] = "Unknown blood type."
	}
	f.BloodType = bloodType

	if !isWildcard(f.Availability) && !types.Availability(f.Availability).Valid() {
		fieldErrors["availability"] = "Availability must be now, today, week or unavailable."
	}

	if f.MaxDistanceKm != nil && (math.IsNaN(*f.MaxDistanceKm) || *f.MaxDistanceKm < 0) {
		fieldErrors["max_distance_km"] = "Max distance must be zero or more."
	}

	return f.Query(), fieldErrors
}

// normalizeBloodTypeParam restores a '+' that arrived unescaped in the query
// string and decoded to a space.
func normalizeBloodTypeParam(raw string) (string, bool) {
	if isWildcard(raw) {
		return raw, true
	}

	bloodType, ok := types.ParseBloodType(strings.ReplaceAll(raw, " ", "+"))
	return string(bloodType), ok
}

func isWildcard(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, types.MatchWildcard)
}

func (s *Service) matchWorkingSet(ctx context.Context, q types.MatchQuery) (types.MatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.FeedFallbackTimeout+time.Second)
	defer cancel()

	if err := s.workingSet.Wait(ctx); err != nil {
		return nil, errDonorsUnavailable
	}

	// a failed fetch with nothing delivered yet never reaches the filter
	if err := s.workingSet.Err(); err != nil {
		s.logger.WithError(err).Warn("donor working set has no collection")
		return nil, errDonorsUnavailable
	}

	result := match.Match(q, s.workingSet.Donors())
	if s.metrics != nil {
		s.metrics.MatchResults.Observe(float64(len(result)))
	}

	return result.Public(), nil
}

func (s *Service) handleGetDonors(w http.ResponseWriter, r *http.Request) {
	q, fieldErrors := s.parseMatchQuery(r)
	if len(fieldErrors) > 0 {
		s.writeFieldErrors(w, fieldErrors)
		return
	}

	result, err := s.matchWorkingSet(r.Context(), q)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "Donor list is temporarily unavailable, try again shortly.")
		return
	}

	s.writeJSON(w, http.StatusOK, types.MatchResponse{
		Requester: q.RequesterLocation,
		Count:     len(result),
		Results:   result,
	})
}

func (s *Service) handleGetNearbyDonors(w http.ResponseWriter, r *http.Request) {
	q, fieldErrors := s.parseMatchQuery(r)
	if len(fieldErrors) > 0 {
		s.writeFieldErrors(w, fieldErrors)
		return
	}

	source := geo.Unavailable
	if q.RequesterLocation != nil {
		source = geo.Fixed(*q.RequesterLocation)
	}

	resolution := s.resolver.Resolve(r.Context(), source)
	if resolution.UsedFallback() {
		s.logger.WithError(resolution.Err).WithField("reason", resolution.Reason).Debug("using fallback requester location")
		if s.metrics != nil {
			s.metrics.GeoFallbacks.WithLabelValues(string(resolution.Reason)).Inc()
		}
	}

	loc := resolution.Location
	q.RequesterLocation = &loc

	result, err := s.matchWorkingSet(r.Context(), q)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "Donor list is temporarily unavailable, try again shortly.")
		return
	}

	s.writeJSON(w, http.StatusOK, types.MatchResponse{
		Requester:    &loc,
		UsedFallback: resolution.UsedFallback(),
		Count:        len(result),
		Results:      result,
	})
}

// handleDonorStream pushes a fresh match result over a websocket every time
// the donor feed delivers a new collection.
func (s *Service) handleDonorStream(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		s.writeError(w, http.StatusServiceUnavailable, "live donor feed is not enabled")
		return
	}

	q, fieldErrors := s.parseMatchQuery(r)
	if len(fieldErrors) > 0 {
		s.writeFieldErrors(w, fieldErrors)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Info("failed to upgrade donor stream")
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.feed.Subscribe()
	defer unsubscribe()

	if s.metrics != nil {
		s.metrics.FeedSubscribers.Inc()
		defer s.metrics.FeedSubscribers.Dec()
	}

	// the client only ever closes; reading surfaces that
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(donors []*types.Donor) error {
		result := match.Match(q, donors).Public()
		if s.metrics != nil {
			s.metrics.FeedDeliveries.Inc()
		}
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(types.MatchResponse{
			Requester: q.RequesterLocation,
			Count:     len(result),
			Results:   result,
		})
	}

	if s.workingSet.Ready() && s.workingSet.Err() == nil {
		if err := send(s.workingSet.Donors()); err != nil {
			return
		}
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case donors, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"),
					time.Now().Add(time.Second))
				return
			}
			if err := send(donors); err != nil {
				s.logger.WithError(err).Debug("donor stream write failed")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}
