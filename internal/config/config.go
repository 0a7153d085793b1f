package config

import (
	"fmt"
	"github.com/joho/godotenv"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		Name string
		Env  string
	}

	API struct {
		Host string
		Port string
	}

	DB struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Orders struct {
		Endpoint     string
		PartnerID    string
		PartnerToken string
		AccountToken string
		UserID       string
		UserPassword string
		LookupTTL    time.Duration
	}

	SMTP struct {
		Host     string
		Port     int
		User     string
		Password string
		From     string
		Operator string
	}

	Flow struct {
		VoiceName        string
		ManagerNumber    string
		EnglishPrefixes  []string
		MaxInputRetries  int
		TranscribeVoice  bool
		MaxRecordSeconds int
		LockTTL          time.Duration
	}

	Scheduler struct {
		Interval     time.Duration
		BatchTimeout time.Duration
	}

	Worker struct {
		BatchSize        int
		MaxWorkers       int
		PerNotifyTimeout time.Duration
	}
}

func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	// App
	cfg.App.Name = getEnv("APP_NAME", "callflow")
	cfg.App.Env = getEnv("APP_ENV", "development")

	// API
	cfg.API.Host = getEnv("API_HOST", "0.0.0.0")
	cfg.API.Port = getEnv("API_PORT", "8080")

	// DB
	cfg.DB.Host = getEnv("DB_HOST", "db")
	cfg.DB.Port = getInt("DB_PORT", 5432)
	cfg.DB.User = getEnv("DB_USER", "root")
	cfg.DB.Password = getEnv("DB_PASSWORD", "123456")
	cfg.DB.Name = getEnv("DB_NAME", "db_callflow")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	// Redis
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "redis:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getInt("REDIS_DB", 0)

	// External order system
	cfg.Orders.Endpoint = getEnv("ORDERS_API_URL", "https://api.afterbuy.de/afterbuy/ABInterface.aspx")
	cfg.Orders.PartnerID = getEnv("ORDERS_PARTNER_ID", "")
	cfg.Orders.PartnerToken = getEnv("ORDERS_PARTNER_TOKEN", "")
	cfg.Orders.AccountToken = getEnv("ORDERS_ACCOUNT_TOKEN", "")
	cfg.Orders.UserID = getEnv("ORDERS_USER_ID", "")
	cfg.Orders.UserPassword = getEnv("ORDERS_USER_PASSWORD", "")
	cfg.Orders.LookupTTL = getDuration("ORDERS_LOOKUP_TTL", 10*time.Minute)

	// Operator notifications
	cfg.SMTP.Host = getEnv("SMTP_HOST", "localhost")
	cfg.SMTP.Port = getInt("SMTP_PORT", 587)
	cfg.SMTP.User = getEnv("SMTP_USER", "")
	cfg.SMTP.Password = getEnv("SMTP_PASSWORD", "")
	cfg.SMTP.From = getEnv("SMTP_FROM", "voicebot@localhost")
	cfg.SMTP.Operator = getEnv("OPERATOR_EMAIL", "")

	// Call flow
	cfg.Flow.VoiceName = getEnv("VOICE_NAME", "alice")
	cfg.Flow.ManagerNumber = getEnv("MANAGER_NUMBER", "+4973929378421")
	cfg.Flow.EnglishPrefixes = getList("FLOW_ENGLISH_PREFIXES", []string{"+1", "+44"})
	cfg.Flow.MaxInputRetries = getInt("FLOW_MAX_INPUT_RETRIES", 2)
	cfg.Flow.TranscribeVoice = isTruthy(getEnv("FLOW_TRANSCRIBE", "true"))
	cfg.Flow.MaxRecordSeconds = getInt("FLOW_MAX_RECORD_SECONDS", 60)
	cfg.Flow.LockTTL = getDuration("FLOW_CALL_LOCK_TTL", 15*time.Second)

	// Notification retry scheduling
	cfg.Scheduler.Interval = getDuration("SCHEDULER_INTERVAL", 1*time.Minute)
	cfg.Scheduler.BatchTimeout = getDuration("SCHEDULER_BATCH_TIMEOUT", 30*time.Second)

	// Worker / notification processing
	cfg.Worker.BatchSize = getInt("NOTIFY_BATCH_SIZE", 50)
	cfg.Worker.MaxWorkers = getInt("NOTIFY_MAX_WORKERS", 4)
	cfg.Worker.PerNotifyTimeout = getDuration("NOTIFY_PER_ITEM_TIMEOUT", 10*time.Second)

	return cfg
}

func getEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}
