package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bloodlink/internal/feed"
	"bloodlink/internal/geo"
	"bloodlink/internal/metrics"
	"bloodlink/internal/storage"
	"bloodlink/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Donors        DonorStore
	Users         UserStore
	Organizations OrganizationStore
	Requests      BloodRequestStore
	Notifications NotificationStore
	Documents     DocumentStore
	Bucket        storage.Bucket
	Broadcaster   Broadcaster
	WorkingSet    DonorSet
	Feed          feed.Subscriber
	Cognito       CognitoClient
	Verifier      TokenVerifier
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
}

type Service struct {
	logger *logrus.Logger
	config *types.Config

	donors        DonorStore
	users         UserStore
	organizations OrganizationStore
	requests      BloodRequestStore
	notifications NotificationStore
	documents     DocumentStore
	bucket        storage.Bucket
	broadcaster   Broadcaster
	workingSet    DonorSet
	feed          feed.Subscriber

	cognito  CognitoClient
	verifier TokenVerifier
	cookie   *securecookie.SecureCookie

	resolver *geo.Resolver
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader

	server *http.Server
}

func New(config *types.Config, logger *logrus.Logger, deps Deps) (*Service, error) {
	if deps.Donors == nil || deps.WorkingSet == nil {
		return nil, errors.New("donor store and working set are required")
	}
	if deps.Verifier == nil {
		return nil, errors.New("token verifier is required")
	}

	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie hash key: %w", err)
	}
	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie block key: %w", err)
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := flow.New()

	s := &Service{
		logger: logger,
		config: config,

		donors:        deps.Donors,
		users:         deps.Users,
		organizations: deps.Organizations,
		requests:      deps.Requests,
		notifications: deps.Notifications,
		documents:     deps.Documents,
		bucket:        deps.Bucket,
		broadcaster:   deps.Broadcaster,
		workingSet:    deps.WorkingSet,
		feed:          deps.Feed,

		cognito:  deps.Cognito,
		verifier: deps.Verifier,
		cookie:   securecookie.New(hashKey, blockKey),

		resolver: geo.NewResolver(config.DefaultLocation(), config.GeolocationTimeout),
		metrics:  deps.Metrics,
		gatherer: gatherer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},

		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}), http.MethodGet)

	r.HandleFunc("/register", s.handlePostRegister, http.MethodPost)
	r.HandleFunc("/register/confirm", s.handlePostRegisterConfirm, http.MethodPost)
	r.HandleFunc("/login", s.handlePostLogin, http.MethodPost)
	r.HandleFunc("/logout", s.handlePostLogout, http.MethodPost)

	r.HandleFunc("/donors", s.handleGetDonors, http.MethodGet)
	r.HandleFunc("/donors/nearby", s.handleGetNearbyDonors, http.MethodGet)
	r.HandleFunc("/ws/donors", s.handleDonorStream, http.MethodGet)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/me/donor", s.handleGetMyDonor, http.MethodGet)
		r.HandleFunc("/me/donor", s.handlePutMyDonor, http.MethodPut)
		r.HandleFunc("/me/donor/location", s.handlePutMyDonorLocation, http.MethodPut)
		r.HandleFunc("/me/donor/availability", s.handlePutMyDonorAvailability, http.MethodPut)
		r.HandleFunc("/me/donor/documents", s.handleGetMyDocuments, http.MethodGet)
		r.HandleFunc("/me/donor/documents", s.handlePostMyDocument, http.MethodPost)
		r.HandleFunc("/me/donor/documents/:documentID", s.handleDeleteMyDocument, http.MethodDelete)

		r.HandleFunc("/me/notifications", s.handleGetMyNotifications, http.MethodGet)
		r.HandleFunc("/me/notifications/:id/read", s.handlePostNotificationRead, http.MethodPost)

		r.HandleFunc("/requests", s.handlePostRequest, http.MethodPost)
		r.HandleFunc("/requests", s.handleGetRequests, http.MethodGet)
		r.HandleFunc("/requests/:id", s.handleGetRequest, http.MethodGet)
		r.HandleFunc("/requests/:id/fulfill", s.handlePostRequestFulfill, http.MethodPost)
		r.HandleFunc("/requests/:id/cancel", s.handlePostRequestCancel, http.MethodPost)

		r.HandleFunc("/organizations", s.handlePostOrganization, http.MethodPost)
		r.HandleFunc("/org/requests", s.handleGetOrganizationRequests, http.MethodGet)

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireAdmin)

			r.HandleFunc("/admin/stats", s.handleGetAdminStats, http.MethodGet)
			r.HandleFunc("/admin/donors", s.handleGetAdminDonors, http.MethodGet)
			r.HandleFunc("/admin/donors/:id/verification", s.handlePostDonorVerification, http.MethodPost)
			r.HandleFunc("/admin/organizations/:id/verification", s.handlePostOrganizationVerification, http.MethodPost)
		})
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:    "ok",
		FeedReady: s.workingSet.Ready(),
	})
}

func (s *Service) userIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(contextKeyUserID).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user id not found in context")
	}
	return userID, nil
}
