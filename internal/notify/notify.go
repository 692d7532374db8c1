package notify

//go:generate mockgen -source=notify.go -destination=mocks/mocks.go -package=mocks DonorLister,NotificationWriter,RequestUpdater,Publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"bloodlink/internal/match"
	"bloodlink/internal/metrics"
	"bloodlink/internal/queue"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type DonorLister interface {
	DonorsByBloodType(ctx context.Context, bloodType types.BloodType) ([]*types.Donor, error)
}

type NotificationWriter interface {
	CreateMany(ctx context.Context, notes []*types.Notification) error
}

type RequestUpdater interface {
	SetNotifiedCount(ctx context.Context, id string, count int) error
}

type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

// Outcome summarizes one broadcast.
type Outcome struct {
	Matched         int
	Notified        int
	PublishFailures int
	Donors          types.MatchResult
}

type Dispatcher struct {
	donors    DonorLister
	notes     NotificationWriter
	requests  RequestUpdater
	publisher Publisher
	logger    *logrus.Logger
	metrics   *metrics.Metrics

	concurrency   int
	defaultRadius float64
}

type Option func(*Dispatcher)

// WithPublisher enables event publishing. Without it broadcasts only store
// notifications.
func WithPublisher(p Publisher) Option {
	return func(d *Dispatcher) { d.publisher = p }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithDefaultRadius bounds requests that carry a location but no radius.
func WithDefaultRadius(km float64) Option {
	return func(d *Dispatcher) { d.defaultRadius = km }
}

func New(donors DonorLister, notes NotificationWriter, requests RequestUpdater, opts ...Option) (*Dispatcher, error) {
	if donors == nil {
		return nil, errors.New("donor lister is required")
	}
	if notes == nil {
		return nil, errors.New("notification writer is required")
	}
	if requests == nil {
		return nil, errors.New("request updater is required")
	}

	d := &Dispatcher{
		donors:      donors,
		notes:       notes,
		requests:    requests,
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = logrus.New()
		d.logger.SetOutput(io.Discard)
	}

	return d, nil
}

// Query builds the match query used to find donors for req.
func (d *Dispatcher) Query(req *types.BloodRequest) types.MatchQuery {
	q := types.MatchQuery{BloodType: string(req.BloodType)}

	loc, ok := req.Location()
	if !ok || !loc.Valid() {
		return q
	}

	q.RequesterLocation = &loc
	switch {
	case req.RadiusKm != nil:
		q.MaxDistanceKm = req.RadiusKm
	case d.defaultRadius > 0:
		q.MaxDistanceKm = utils.Float64Ptr(d.defaultRadius)
	}

	return q
}

// Eligible reports whether a matched donor may be contacted.
func Eligible(donor *types.Donor) bool {
	if donor.UserID == nil || *donor.UserID == "" {
		return false
	}
	if donor.Availability == types.AvailabilityUnavailable {
		return false
	}
	return donor.VerificationStatus != types.VerificationRejected
}

// Broadcast stores a notification for every eligible donor near req and
// publishes one donor.notified event each. Publish failures are counted in the
// outcome but do not fail the broadcast.
func (d *Dispatcher) Broadcast(ctx context.Context, req *types.BloodRequest) (Outcome, error) {
	if req == nil {
		return Outcome{}, errors.New("blood request is required")
	}

	logger := d.logger.WithField("request_id", req.ID)

	donors, err := d.donors.DonorsByBloodType(ctx, req.BloodType)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to fetch donors for broadcast: %w", err)
	}

	matched := match.Match(d.Query(req), donors)

	eligible := make(types.MatchResult, 0, len(matched))
	for _, m := range matched {
		if Eligible(m.Donor) {
			eligible = append(eligible, m)
		}
	}

	out := Outcome{Matched: len(matched), Donors: eligible}

	notes := make([]*types.Notification, 0, len(eligible))
	for _, m := range eligible {
		notes = append(notes, &types.Notification{
			ID:             utils.NanoID(),
			UserID:         *m.Donor.UserID,
			DonorID:        m.Donor.ID,
			BloodRequestID: req.ID,
			Title:          title(req),
			Message:        message(req, m.DistanceKm),
		})
	}

	if err := d.notes.CreateMany(ctx, notes); err != nil {
		return out, fmt.Errorf("failed to store broadcast notifications: %w", err)
	}
	out.Notified = len(notes)

	if err := d.requests.SetNotifiedCount(ctx, req.ID, out.Notified); err != nil {
		return out, fmt.Errorf("failed to record notified count: %w", err)
	}

	out.PublishFailures = d.publishAll(ctx, req, eligible, notes)

	if d.metrics != nil {
		d.metrics.Broadcasts.WithLabelValues(string(req.Urgency)).Inc()
		d.metrics.NotificationsSent.Add(float64(out.Notified))
		d.metrics.PublishFailures.Add(float64(out.PublishFailures))
	}

	logger.WithFields(logrus.Fields{
		"matched":          out.Matched,
		"notified":         out.Notified,
		"publish_failures": out.PublishFailures,
	}).Info("blood request broadcast")

	return out, nil
}

func (d *Dispatcher) publishAll(ctx context.Context, req *types.BloodRequest, donors types.MatchResult, notes []*types.Notification) int {
	if d.publisher == nil || len(notes) == 0 {
		return 0
	}

	var failures atomic.Int64
	var g errgroup.Group
	g.SetLimit(d.concurrency)

	now := time.Now()
	for i, note := range notes {
		event := types.DonorNotifiedEvent{
			NotificationID: note.ID,
			BloodRequestID: req.ID,
			DonorID:        note.DonorID,
			UserID:         note.UserID,
			BloodType:      req.BloodType,
			Urgency:        req.Urgency,
			DistanceKm:     donors[i].DistanceKm,
			Timestamp:      now,
		}

		g.Go(func() error {
			if err := d.publisher.PublishJSON(ctx, queue.RouteDonorNotified, event); err != nil {
				failures.Add(1)
				d.logger.WithError(err).WithField("donor_id", event.DonorID).Warn("failed to publish donor notification")
			}
			return nil
		})
	}

	_ = g.Wait()

	return int(failures.Load())
}

// RequestChanged publishes a status event for req. A missing publisher is a no-op.
func (d *Dispatcher) RequestChanged(ctx context.Context, req *types.BloodRequest) error {
	if d.publisher == nil {
		return nil
	}

	var routingKey string
	switch req.Status {
	case types.BloodRequestOpen:
		routingKey = queue.RouteRequestCreated
	case types.BloodRequestFulfilled:
		routingKey = queue.RouteRequestFulfilled
	case types.BloodRequestCancelled:
		routingKey = queue.RouteRequestCancelled
	default:
		return fmt.Errorf("unknown blood request status %q", req.Status)
	}

	err := d.publisher.PublishJSON(ctx, routingKey, types.BloodRequestEvent{
		BloodRequestID: req.ID,
		Status:         req.Status,
		Timestamp:      time.Now(),
	})
	if err != nil {
		if d.metrics != nil {
			d.metrics.PublishFailures.Inc()
		}
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	return nil
}

func title(req *types.BloodRequest) string {
	if req.Urgency == types.UrgencyCritical {
		return fmt.Sprintf("Critical: %s blood needed", req.BloodType)
	}
	return fmt.Sprintf("%s blood needed", req.BloodType)
}

func message(req *types.BloodRequest, distanceKm *float64) string {
	msg := fmt.Sprintf("%d unit(s) of %s needed at %s.", req.Units, req.BloodType, req.HospitalName)
	if distanceKm != nil {
		msg += fmt.Sprintf(" About %.1f km from you.", *distanceKm)
	}
	if req.ContactPhone != "" {
		msg += " Contact " + req.ContactPhone + "."
	}
	return msg
}
