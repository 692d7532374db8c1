package types

import "time"

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	DatabaseSchema  string `envconfig:"DATABASE_SCHEMA" default:"bloodlink"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`

	// Cognito Auth
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoIssuerURL  string `envconfig:"COGNITO_ISSUER_URL"`

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	// Verification document storage, "supabase" or "s3"
	StorageBackend      string `envconfig:"STORAGE_BACKEND" default:"supabase"`
	SupabaseProjectID   string `envconfig:"SUPABASE_PROJECT_ID"`
	SupabaseAPIKey      string `envconfig:"SUPABASE_API_KEY"`
	SupabaseBucketName  string `envconfig:"SUPABASE_BUCKET_NAME" default:"donor-documents"`
	S3BucketName        string `envconfig:"S3_BUCKET_NAME"`
	MaxDocumentSizeByte int64  `envconfig:"MAX_DOCUMENT_SIZE_BYTES" default:"10485760"`

	// Empty disables event publishing
	RabbitMQURL string `envconfig:"RABBITMQ_URL"`

	// Requester location used when geolocation is missing, denied or slow
	DefaultLatitude    float64       `envconfig:"DEFAULT_LATITUDE" default:"27.7172"`
	DefaultLongitude   float64       `envconfig:"DEFAULT_LONGITUDE" default:"85.3240"`
	GeolocationTimeout time.Duration `envconfig:"GEOLOCATION_TIMEOUT" default:"5s"`

	// Bound on waiting for the first donor feed delivery
	FeedFallbackTimeout time.Duration `envconfig:"FEED_FALLBACK_TIMEOUT" default:"5s"`

	NotifyConcurrency        int     `envconfig:"NOTIFY_CONCURRENCY" default:"8"`
	DefaultBroadcastRadiusKm float64 `envconfig:"DEFAULT_BROADCAST_RADIUS_KM" default:"25"`
}

func (c *Config) DefaultLocation() Location {
	return Location{Lat: c.DefaultLatitude, Lng: c.DefaultLongitude}
}
