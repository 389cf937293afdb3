package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host string
	Port string

	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBAutoMigrate bool

	AdminCode     string
	AdminSecret   string
	GatewaySecret string
	PostbackKey   string

	// FeedURLs maps a network name to its earnings report endpoint,
	// read from FEED_URL_<NETWORK>.
	FeedURLs     map[string]string
	FeedAPIKeys  map[string]string
	FeedTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Load reads .env when present and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file loaded, using process environment")
	}

	cfg := &Config{
		Host:          getenv("HOST", "127.0.0.1"),
		Port:          getenv("PORT", "3000"),
		DBHost:        getenv("DB_HOST", "localhost"),
		DBPort:        getenv("DB_PORT", "5432"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        os.Getenv("DB_NAME"),
		DBSSLMode:     getenv("DB_SSLMODE", "disable"),
		AdminCode:     os.Getenv("ADMIN_CODE"),
		AdminSecret:   os.Getenv("ADMIN_SECRET"),
		GatewaySecret: os.Getenv("MEMBER_GATEWAY_SECRET"),
		PostbackKey:   os.Getenv("POSTBACK_SECRET"),
		FeedURLs:      map[string]string{},
		FeedAPIKeys:   map[string]string{},
		FeedTimeout:   durationEnv("FEED_TIMEOUT", 30*time.Second),
		ReadTimeout:   durationEnv("HTTP_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:  durationEnv("HTTP_WRITE_TIMEOUT", 30*time.Second),
	}

	autoMigrateEnv := os.Getenv("DB_AUTO_MIGRATE")
	if autoMigrateEnv != "" {
		v, err := strconv.ParseBool(autoMigrateEnv)
		if err != nil {
			log.Printf("⚠️  Invalid value for DB_AUTO_MIGRATE: %s\n", autoMigrateEnv)
		}
		cfg.DBAutoMigrate = v
	}

	for _, kv := range os.Environ() {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || val == "" {
			continue
		}
		if network, found := strings.CutPrefix(key, "FEED_URL_"); found {
			cfg.FeedURLs[strings.ToLower(network)] = val
		}
		if network, found := strings.CutPrefix(key, "FEED_KEY_"); found {
			cfg.FeedAPIKeys[strings.ToLower(network)] = val
		}
	}

	return cfg
}

func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("⚠️  Invalid duration for %s: %s\n", key, raw)
		return fallback
	}
	return d
}
