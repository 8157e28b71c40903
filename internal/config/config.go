package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig
	Firebase  FirebaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	MinIO     MinIOConfig
	Upload    UploadConfig
	CORS      CORSConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Env      string
	Port     string
	LogLevel string
}

// IsProduction reports whether the app runs with production settings
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string // service account JSON; empty uses application default credentials
	APIKey          string // web API key for the Identity Toolkit calls
	// RequestURI is the continue URL sent with IdP sign-in
	RequestURI string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	PublicURL string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type UploadConfig struct {
	RelayURL string // external relay; empty serves uploads from MinIO
	Origin   string // prefixed to relative URLs returned by the relay
	MaxSize  int64
	Timeout  time.Duration
}

type CORSConfig struct {
	Origins []string
}

type SessionConfig struct {
	MaxSubscriptions  int
	MaxUnreadCounters int
}

type RateLimitConfig struct {
	RPS int
}

// Load reads configuration from .env file and environment variables
func Load() *Config {
	// .env is optional, e.g. in Docker
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("⚠️  No .env file found, reading from environment variables")
	}

	return &Config{
		App: AppConfig{
			Env:      getEnv("APP_ENV", "development"),
			Port:     getEnv("APP_PORT", "8080"),
			LogLevel: getEnv("APP_LOG_LEVEL", "debug"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			APIKey:          getEnv("FIREBASE_API_KEY", ""),
			RequestURI:      getEnv("GOOGLE_REQUEST_URI", "http://localhost"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-secret"),
			Expiry: getDuration("JWT_EXPIRY", 24*time.Hour),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			PublicURL: getEnv("MINIO_PUBLIC_URL", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "firechat-media"),
			UseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
		},
		Upload: UploadConfig{
			RelayURL: getEnv("UPLOAD_RELAY_URL", ""),
			Origin:   getEnv("UPLOAD_ORIGIN", ""),
			MaxSize:  int64(getInt("UPLOAD_MAX_SIZE_MB", 50)) << 20,
			Timeout:  getDuration("UPLOAD_TIMEOUT", 60*time.Second),
		},
		CORS: CORSConfig{
			Origins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		},
		Session: SessionConfig{
			MaxSubscriptions:  getInt("SESSION_MAX_SUBSCRIPTIONS", 64),
			MaxUnreadCounters: getInt("SESSION_MAX_UNREAD_COUNTERS", 30),
		},
		RateLimit: RateLimitConfig{
			RPS: getInt("RATE_LIMIT_RPS", 20),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}
