package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bloodlink/internal/db"
	"bloodlink/internal/feed"
	"bloodlink/internal/metrics"
	"bloodlink/internal/notify"
	"bloodlink/internal/queue"
	"bloodlink/internal/server"
	"bloodlink/internal/storage"
	"bloodlink/internal/store"
	"bloodlink/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(cCtx.String("env-prefix"))
	if err != nil {
		return err
	}

	logger := newLogger(config)

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	donorRepo := store.NewDonorRepository(pool)
	userRepo := store.NewUserRepository(pool)
	organizationRepo := store.NewOrganizationRepository(pool)
	requestRepo := store.NewBloodRequestRepository(pool)
	notificationRepo := store.NewNotificationRepository(pool)
	documentRepo := store.NewDocumentRepository(pool)

	donorFeed := feed.New(donorRepo, feed.NewPoolListener(pool, store.DonorsChangedChannel), logger)
	go func() {
		if err := donorFeed.Run(ctx); err != nil {
			logger.WithError(err).Error("donor feed stopped")
		}
	}()

	workingSet := feed.NewWorkingSet(ctx, donorRepo, donorFeed, config.FeedFallbackTimeout, logger)
	defer workingSet.Close()
	workingSet.OnChange(func(donors []*types.Donor) {
		logger.WithField("donors", len(donors)).Debug("donor working set replaced")
	})

	dispatcherOpts := []notify.Option{
		notify.WithLogger(logger),
		notify.WithMetrics(m),
		notify.WithConcurrency(config.NotifyConcurrency),
		notify.WithDefaultRadius(config.DefaultBroadcastRadiusKm),
	}

	if config.RabbitMQURL != "" {
		client, err := queue.Dial(config.RabbitMQURL, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.WithError(err).Warn("failed to close rabbitmq client")
			}
		}()
		dispatcherOpts = append(dispatcherOpts, notify.WithPublisher(client))
	} else {
		logger.Info("RABBITMQ_URL not set, donor events will not be published")
	}

	dispatcher, err := notify.New(donorRepo, notificationRepo, requestRepo, dispatcherOpts...)
	if err != nil {
		return err
	}

	bucket, err := newBucket(config, awsConfig)
	if err != nil {
		return err
	}

	jwkCache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initilaize jwk cache: %w", err)
	}

	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", config.CognitoIssuerURL)

	err = jwkCache.Register(ctx, jwksURL)
	if err != nil {
		return fmt.Errorf("failed to register cognito jwk with cache: %w", err)
	}

	srv, err := server.New(config, logger, server.Deps{
		Donors:        donorRepo,
		Users:         userRepo,
		Organizations: organizationRepo,
		Requests:      requestRepo,
		Notifications: notificationRepo,
		Documents:     documentRepo,
		Bucket:        bucket,
		Broadcaster:   dispatcher,
		WorkingSet:    workingSet,
		Feed:          donorFeed,
		Cognito:       cognitoidentityprovider.NewFromConfig(awsConfig),
		Verifier:      server.NewJWKVerifier(jwkCache, jwksURL, config.CognitoIssuerURL),
		Metrics:       m,
		Gatherer:      registry,
	})
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}

func newBucket(config *types.Config, awsConfig aws.Config) (storage.Bucket, error) {
	switch strings.ToLower(config.StorageBackend) {
	case "s3":
		if config.S3BucketName == "" {
			return nil, fmt.Errorf("set S3_BUCKET_NAME for the s3 storage backend")
		}
		return storage.NewS3Storage(s3.NewFromConfig(awsConfig), config.S3BucketName), nil
	default:
		if config.SupabaseProjectID == "" || config.SupabaseAPIKey == "" {
			return nil, fmt.Errorf("set SUPABASE_PROJECT_ID and SUPABASE_API_KEY for the supabase storage backend")
		}
		return storage.NewSupabaseStorage(config.SupabaseProjectID, config.SupabaseAPIKey, config.SupabaseBucketName), nil
	}
}
