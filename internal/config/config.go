package config

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr    string
	AppEnv      string
	LogLevel    string
	ServiceName string

	Postgres PostgresConfig

	RedisAddr     string
	RedisPassword string
	KafkaBrokers  []string
	MongoURI      string

	JWTSecret       string
	JWTExpires      time.Duration
	CORSOrigins     []string
	RateLimitPerMin int

	AnalyticsGroup   string
	AnalyticsWorkers int
}

// PostgresConfig holds the relational store parameters. DSN wins when set,
// otherwise it is built from the individual parts.
type PostgresConfig struct {
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	MaxConns int32
	MinConns int32
	Timeout  time.Duration
}

func (pc PostgresConfig) ConnectionString() string {
	if pc.DSN != "" {
		return pc.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(pc.User, pc.Password),
		Host:     net.JoinHostPort(pc.Host, pc.Port),
		Path:     "/" + pc.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func Load() Config {
	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8000"),
		AppEnv:      getenv("APP_ENV", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		ServiceName: getenv("SERVICE_NAME", "ecom-chatbot-api"),
		Postgres: PostgresConfig{
			DSN:      os.Getenv("POSTGRES_DSN"),
			Host:     getenv("POSTGRES_HOST", "localhost"),
			Port:     getenv("POSTGRES_PORT", "5432"),
			User:     getenv("POSTGRES_USER", "postgres"),
			Password: getenv("POSTGRES_PASSWORD", "password"),
			DBName:   getenv("POSTGRES_DB", "ecom_chatbot"),
			MaxConns: int32(getint("POSTGRES_MAX_CONNS", 8)),
			MinConns: int32(getint("POSTGRES_MIN_CONNS", 1)),
			Timeout:  getduration("DB_TIMEOUT", 5*time.Second),
		},
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:     splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
		MongoURI:         getenv("MONGODB_URI", "mongodb://localhost:27017/ecom_chatbot"),
		JWTSecret:        getenv("JWT_SECRET_KEY", "dev-secret-key"),
		JWTExpires:       time.Duration(getint("JWT_ACCESS_TOKEN_EXPIRES", 3600)) * time.Second,
		CORSOrigins:      splitCSV(getenv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitPerMin:  getint("RATE_LIMIT_PER_MINUTE", 120),
		AnalyticsGroup:   getenv("ANALYTICS_GROUP", "analytics-svc"),
		AnalyticsWorkers: getint("ANALYTICS_WORKERS", 4),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getduration accepts Go durations ("5s") or plain seconds ("5").
func getduration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
