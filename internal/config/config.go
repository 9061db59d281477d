package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	DB struct {
		DSN             string
		ConnectAttempts int
	}
	API struct {
		Port     string
		BasePath string
	}
	Logging struct {
		Dir   string
		Level string
	}
	SMS struct {
		AccountSID string
		AuthToken  string
		FromNumber string
	}
	Email struct {
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
		FromName   string
	}
	Weather struct {
		APIKey        string
		BaseURL       string
		Timeout       time.Duration
		SweepInterval time.Duration
		FarmDelay     time.Duration
	}
	Alert struct {
		ChannelTimeout time.Duration
	}
	Inbox struct {
		Backend  string
		Capacity int
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Kafka struct {
		Broker        string
		ReadingsTopic string
		AlertsTopic   string
		GroupID       string
	}
	MQTT struct {
		Broker   string
		ClientID string
		Topic    string
		Username string
		Password string
	}
	ShutdownTimeout time.Duration
}

// SMSConfigured reports whether Twilio credentials are present.
func (c Config) SMSConfigured() bool {
	return c.SMS.AccountSID != "" && c.SMS.AuthToken != "" && c.SMS.FromNumber != ""
}

// EmailConfigured reports whether SMTP settings are complete.
func (c Config) EmailConfigured() bool {
	return c.Email.SMTPServer != "" && c.Email.SMTPPort != 0 && c.Email.Username != "" && c.Email.Password != ""
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	envFile := envOrDefault("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load %s file: %w", envFile, err)
	}

	var cfg Config
	var err error

	cfg.DB.DSN = os.Getenv("DB_DSN")
	if cfg.DB.ConnectAttempts, err = intOrDefault("DB_CONNECT_ATTEMPTS", 5); err != nil {
		return Config{}, err
	}

	cfg.API.Port = envOrDefault("API_PORT", ":8080")
	cfg.API.BasePath = envOrDefault("API_BASE_PATH", "/api/v0")

	cfg.Logging.Dir = envOrDefault("LOG_DIR", "logs")
	cfg.Logging.Level = envOrDefault("LOG_LEVEL", "info")

	// Twilio
	cfg.SMS.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	cfg.SMS.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.SMS.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")

	// Email settings
	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	if p, err := strconv.Atoi(os.Getenv("EMAIL_SMTP_PORT")); err == nil {
		cfg.Email.SMTPPort = p
	}
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	cfg.Email.FromName = envOrDefault("EMAIL_FROM_NAME", "Farm Alerts")

	cfg.Weather.APIKey = os.Getenv("WEATHER_API_KEY")
	cfg.Weather.BaseURL = envOrDefault("WEATHER_BASE_URL", "https://api.openweathermap.org")
	if cfg.Weather.Timeout, err = durationOrDefault("WEATHER_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Weather.SweepInterval, err = durationOrDefault("WEATHER_SWEEP_INTERVAL", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.Weather.FarmDelay, err = durationOrDefault("WEATHER_FARM_DELAY", time.Second); err != nil {
		return Config{}, err
	}

	if cfg.Alert.ChannelTimeout, err = durationOrDefault("ALERT_CHANNEL_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}

	cfg.Inbox.Backend = envOrDefault("INBOX_BACKEND", "memory")
	if cfg.Inbox.Capacity, err = intOrDefault("INBOX_CAPACITY", 50); err != nil {
		return Config{}, err
	}

	cfg.Redis.Addr = envOrDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.DB, err = intOrDefault("REDIS_DB", 0); err != nil {
		return Config{}, err
	}

	// Kafka settings
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.ReadingsTopic = envOrDefault("KAFKA_READINGS_TOPIC", "sensor-readings")
	cfg.Kafka.AlertsTopic = envOrDefault("KAFKA_ALERTS_TOPIC", "alert-records")
	cfg.Kafka.GroupID = envOrDefault("KAFKA_GROUP_ID", "farm-alert-service")

	cfg.MQTT.Broker = os.Getenv("MQTT_BROKER")
	cfg.MQTT.ClientID = envOrDefault("MQTT_CLIENT_ID", "farm-alert-service")
	cfg.MQTT.Topic = envOrDefault("MQTT_TOPIC", "farms/+/sensors/+")
	cfg.MQTT.Username = os.Getenv("MQTT_USERNAME")
	cfg.MQTT.Password = os.Getenv("MQTT_PASSWORD")

	if cfg.ShutdownTimeout, err = durationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}
	if cfg.Inbox.Backend != "memory" && cfg.Inbox.Backend != "redis" {
		return Config{}, fmt.Errorf("invalid INBOX_BACKEND %q: want memory or redis", cfg.Inbox.Backend)
	}
	if cfg.Inbox.Capacity <= 0 {
		return Config{}, fmt.Errorf("invalid INBOX_CAPACITY: must be positive")
	}
	if cfg.DB.ConnectAttempts <= 0 {
		return Config{}, fmt.Errorf("invalid DB_CONNECT_ATTEMPTS: must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intOrDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationOrDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
