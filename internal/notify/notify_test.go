package notify

import (
	"context"
	"errors"
	"testing"

	"bloodlink/internal/metrics"
	"bloodlink/internal/notify/mocks"
	"bloodlink/internal/queue"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type DispatcherSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	donors    *mocks.MockDonorLister
	notes     *mocks.MockNotificationWriter
	requests  *mocks.MockRequestUpdater
	publisher *mocks.MockPublisher
	metrics   *metrics.Metrics
	dispatch  *Dispatcher
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.donors = mocks.NewMockDonorLister(s.ctrl)
	s.notes = mocks.NewMockNotificationWriter(s.ctrl)
	s.requests = mocks.NewMockRequestUpdater(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())

	var err error
	s.dispatch, err = New(s.donors, s.notes, s.requests,
		WithPublisher(s.publisher),
		WithMetrics(s.metrics),
		WithConcurrency(2),
		WithDefaultRadius(10),
	)
	s.Require().NoError(err)
}

func (s *DispatcherSuite) TearDownTest() {
	s.ctrl.Finish()
}

func kathmanduRequest() *types.BloodRequest {
	return &types.BloodRequest{
		ID:           "req-1",
		BloodType:    types.BloodTypeONeg,
		Units:        2,
		Urgency:      types.UrgencyCritical,
		HospitalName: "Bir Hospital",
		ContactPhone: "+977-1-4221119",
		Latitude:     utils.Float64Ptr(27.7172),
		Longitude:    utils.Float64Ptr(85.3240),
	}
}

func linkedDonor(id string, lat, lng float64) *types.Donor {
	return &types.Donor{
		ID:                 id,
		UserID:             utils.StringPtr("user-" + id),
		BloodType:          types.BloodTypeONeg,
		Latitude:           utils.Float64Ptr(lat),
		Longitude:          utils.Float64Ptr(lng),
		Availability:       types.AvailabilityNow,
		VerificationStatus: types.VerificationVerified,
	}
}

func (s *DispatcherSuite) TestNew() {
	s.Run("nil donor lister", func() {
		_, err := New(nil, s.notes, s.requests)
		s.ErrorContains(err, "donor lister is required")
	})

	s.Run("nil notification writer", func() {
		_, err := New(s.donors, nil, s.requests)
		s.ErrorContains(err, "notification writer is required")
	})

	s.Run("nil request updater", func() {
		_, err := New(s.donors, s.notes, nil)
		s.ErrorContains(err, "request updater is required")
	})
}

func (s *DispatcherSuite) TestQuery() {
	s.Run("request radius wins", func() {
		req := kathmanduRequest()
		req.RadiusKm = utils.Float64Ptr(3)
		q := s.dispatch.Query(req)
		s.Equal(3.0, *q.MaxDistanceKm)
		s.Equal("O-", q.BloodType)
	})

	s.Run("default radius", func() {
		q := s.dispatch.Query(kathmanduRequest())
		s.Equal(10.0, *q.MaxDistanceKm)
	})

	s.Run("no location means no bound", func() {
		req := kathmanduRequest()
		req.Latitude = nil
		q := s.dispatch.Query(req)
		s.Nil(q.RequesterLocation)
		s.Nil(q.MaxDistanceKm)
	})
}

func (s *DispatcherSuite) TestEligible() {
	d := linkedDonor("a", 0, 0)
	s.True(Eligible(d))

	unlinked := linkedDonor("b", 0, 0)
	unlinked.UserID = nil
	s.False(Eligible(unlinked))

	unavailable := linkedDonor("c", 0, 0)
	unavailable.Availability = types.AvailabilityUnavailable
	s.False(Eligible(unavailable))

	rejected := linkedDonor("d", 0, 0)
	rejected.VerificationStatus = types.VerificationRejected
	s.False(Eligible(rejected))

	pending := linkedDonor("e", 0, 0)
	pending.VerificationStatus = types.VerificationPending
	s.True(Eligible(pending))
}

func (s *DispatcherSuite) TestBroadcast() {
	ctx := context.Background()
	req := kathmanduRequest()

	near := linkedDonor("near", 27.7172, 85.3240)
	nearby := linkedDonor("close", 27.7271, 85.3100)
	far := linkedDonor("far", 28.2096, 83.9856)
	unlinked := linkedDonor("unlinked", 27.7172, 85.3240)
	unlinked.UserID = nil

	s.donors.EXPECT().
		DonorsByBloodType(ctx, types.BloodTypeONeg).
		Return([]*types.Donor{far, nearby, unlinked, near}, nil)

	var stored []*types.Notification
	s.notes.EXPECT().
		CreateMany(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, notes []*types.Notification) error {
			stored = notes
			return nil
		})

	s.requests.EXPECT().SetNotifiedCount(ctx, "req-1", 2).Return(nil)

	s.publisher.EXPECT().
		PublishJSON(ctx, queue.RouteDonorNotified, gomock.AssignableToTypeOf(types.DonorNotifiedEvent{})).
		Return(nil).
		Times(2)

	out, err := s.dispatch.Broadcast(ctx, req)
	s.Require().NoError(err)

	s.Equal(3, out.Matched)
	s.Equal(2, out.Notified)
	s.Zero(out.PublishFailures)

	s.Require().Len(stored, 2)
	s.Equal("near", stored[0].DonorID)
	s.Equal("user-near", stored[0].UserID)
	s.Equal("req-1", stored[0].BloodRequestID)
	s.Equal("close", stored[1].DonorID)
	s.Contains(stored[0].Title, "Critical")
	s.Contains(stored[1].Message, "Bir Hospital")
	s.NotEmpty(stored[0].ID)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.Broadcasts.WithLabelValues("critical")))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.NotificationsSent))
}

func (s *DispatcherSuite) TestBroadcastPublishFailuresAreTolerated() {
	ctx := context.Background()

	s.donors.EXPECT().DonorsByBloodType(ctx, gomock.Any()).
		Return([]*types.Donor{linkedDonor("a", 27.7172, 85.3240), linkedDonor("b", 27.7172, 85.3240)}, nil)
	s.notes.EXPECT().CreateMany(ctx, gomock.Any()).Return(nil)
	s.requests.EXPECT().SetNotifiedCount(ctx, "req-1", 2).Return(nil)
	s.publisher.EXPECT().PublishJSON(ctx, queue.RouteDonorNotified, gomock.Any()).
		Return(errors.New("channel closed")).
		Times(2)

	out, err := s.dispatch.Broadcast(ctx, kathmanduRequest())
	s.Require().NoError(err)
	s.Equal(2, out.Notified)
	s.Equal(2, out.PublishFailures)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.PublishFailures))
}

func (s *DispatcherSuite) TestBroadcastNoMatches() {
	ctx := context.Background()

	s.donors.EXPECT().DonorsByBloodType(ctx, gomock.Any()).Return([]*types.Donor{}, nil)
	s.notes.EXPECT().CreateMany(ctx, gomock.Len(0)).Return(nil)
	s.requests.EXPECT().SetNotifiedCount(ctx, "req-1", 0).Return(nil)

	out, err := s.dispatch.Broadcast(ctx, kathmanduRequest())
	s.Require().NoError(err)
	s.Zero(out.Matched)
	s.Zero(out.Notified)
}

func (s *DispatcherSuite) TestBroadcastErrors() {
	ctx := context.Background()

	s.Run("nil request", func() {
		_, err := s.dispatch.Broadcast(ctx, nil)
		s.Error(err)
	})

	s.Run("donor fetch fails", func() {
		s.donors.EXPECT().DonorsByBloodType(ctx, gomock.Any()).Return(nil, errors.New("db down"))
		_, err := s.dispatch.Broadcast(ctx, kathmanduRequest())
		s.ErrorContains(err, "failed to fetch donors for broadcast")
	})

	s.Run("notification store fails", func() {
		s.donors.EXPECT().DonorsByBloodType(ctx, gomock.Any()).
			Return([]*types.Donor{linkedDonor("a", 27.7172, 85.3240)}, nil)
		s.notes.EXPECT().CreateMany(ctx, gomock.Any()).Return(errors.New("unique violation"))

		out, err := s.dispatch.Broadcast(ctx, kathmanduRequest())
		s.ErrorContains(err, "failed to store broadcast notifications")
		s.Zero(out.Notified)
	})
}

func (s *DispatcherSuite) TestBroadcastWithoutPublisher() {
	ctx := context.Background()
	dispatch, err := New(s.donors, s.notes, s.requests)
	s.Require().NoError(err)

	s.donors.EXPECT().DonorsByBloodType(ctx, gomock.Any()).
		Return([]*types.Donor{linkedDonor("a", 27.7172, 85.3240)}, nil)
	s.notes.EXPECT().CreateMany(ctx, gomock.Len(1)).Return(nil)
	s.requests.EXPECT().SetNotifiedCount(ctx, "req-1", 1).Return(nil)

	out, err := dispatch.Broadcast(ctx, kathmanduRequest())
	s.Require().NoError(err)
	s.Equal(1, out.Notified)
}

func (s *DispatcherSuite) TestRequestChanged() {
	ctx := context.Background()
	req := kathmanduRequest()
	req.Status = types.BloodRequestFulfilled

	s.publisher.EXPECT().
		PublishJSON(ctx, queue.RouteRequestFulfilled, gomock.AssignableToTypeOf(types.BloodRequestEvent{})).
		Return(nil)

	s.NoError(s.dispatch.RequestChanged(ctx, req))

	req.Status = "archived"
	s.Error(s.dispatch.RequestChanged(ctx, req))
}
