// Package config loads configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // zone database for minimal images
)

// Backend names.
const (
	RecordSheets   = "sheets"
	RecordDynamoDB = "dynamodb"
	RecordPostgres = "postgres"
	RecordLog      = "log"

	ObjectDrive = "drive"
	ObjectS3    = "s3"
	ObjectNone  = "none"

	EventsNATS  = "nats"
	EventsRedis = "redis"
	EventsNone  = "none"
)

// Env holds the configuration values for the application.
type Env struct {
	TelegramToken   string
	LogLevel        string
	HealthAddr      string
	SchemaPath      string
	PollTimeout     time.Duration
	DownloadTimeout time.Duration

	RecordStore   string
	ObjectStore   string
	EventsBackend string

	GoogleCredentialsJSON string
	SpreadsheetID         string
	SheetRange            string
	DriveFolderID         string

	Region      string
	Bucket      string
	Table       string
	DatabaseURL string

	// LinkTTL bounds the presigned receipt links handed out by the list API.
	LinkTTL time.Duration

	NATSURL       string
	RedisURL      string
	EventsSubject string

	SlackToken   string
	SlackChannel string

	DevBypassAuth bool

	// Location stamps report dates and day keys.
	Location *time.Location
}

// Load reads the bot configuration and reports every missing or invalid
// value at once.
func Load() (Env, error) {
	var errs []error
	e := Env{
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		LogLevel:        get("LOG_LEVEL", "info"),
		HealthAddr:      get("HEALTH_ADDR", ":8080"),
		SchemaPath:      get("SCHEMA_PATH", ""),
		PollTimeout:     seconds("POLL_TIMEOUT_SECONDS", 60, &errs),
		DownloadTimeout: seconds("DOWNLOAD_TIMEOUT_SECONDS", 30, &errs),

		RecordStore:   get("RECORD_STORE", RecordSheets),
		ObjectStore:   get("OBJECT_STORE", ObjectDrive),
		EventsBackend: get("EVENTS_BACKEND", EventsNone),

		GoogleCredentialsJSON: get("GOOGLE_CREDENTIALS_JSON", ""),
		SpreadsheetID:         get("GOOGLE_SPREADSHEET_ID", ""),
		SheetRange:            get("GOOGLE_SHEET_RANGE", "A:J"),
		DriveFolderID:         get("GOOGLE_DRIVE_FOLDER_ID", ""),

		Region:      get("AWS_REGION", "us-east-1"),
		Bucket:      get("S3_BUCKET", ""),
		Table:       get("DDB_TABLE", ""),
		DatabaseURL: get("DATABASE_URL", ""),

		NATSURL:       get("NATS_URL", ""),
		RedisURL:      get("REDIS_URL", ""),
		EventsSubject: get("EVENTS_SUBJECT", "fieldbot.reports"),

		SlackToken:   get("SLACK_BOT_TOKEN", ""),
		SlackChannel: get("SLACK_ALERT_CHANNEL", ""),

		DevBypassAuth: get("DEV_BYPASS_AUTH", "") == "true",
	}
	loc, err := time.LoadLocation(get("REPORT_TIMEZONE", "Europe/Rome"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid REPORT_TIMEZONE: %w", err))
		loc = time.UTC
	}
	e.Location = loc

	if e.TelegramToken == "" {
		errs = append(errs, errors.New("missing env TELEGRAM_TOKEN"))
	}
	switch e.RecordStore {
	case RecordSheets:
		errs = requireEnv(errs, "GOOGLE_SPREADSHEET_ID", e.SpreadsheetID)
	case RecordDynamoDB:
		errs = requireEnv(errs, "DDB_TABLE", e.Table)
	case RecordPostgres:
		errs = requireEnv(errs, "DATABASE_URL", e.DatabaseURL)
	case RecordLog:
	default:
		errs = append(errs, fmt.Errorf("unknown RECORD_STORE %q", e.RecordStore))
	}
	switch e.ObjectStore {
	case ObjectDrive, ObjectNone:
	case ObjectS3:
		errs = requireEnv(errs, "S3_BUCKET", e.Bucket)
	default:
		errs = append(errs, fmt.Errorf("unknown OBJECT_STORE %q", e.ObjectStore))
	}
	switch e.EventsBackend {
	case EventsNone:
	case EventsNATS:
		errs = requireEnv(errs, "NATS_URL", e.NATSURL)
	case EventsRedis:
		errs = requireEnv(errs, "REDIS_URL", e.RedisURL)
	default:
		errs = append(errs, fmt.Errorf("unknown EVENTS_BACKEND %q", e.EventsBackend))
	}
	return e, errors.Join(errs...)
}

// GoogleConfigured reports whether Google API credentials were provided.
func (e Env) GoogleConfigured() bool { return e.GoogleCredentialsJSON != "" }

// SlackConfigured reports whether commit alerts can be posted.
func (e Env) SlackConfigured() bool { return e.SlackToken != "" && e.SlackChannel != "" }

// MustLoadAPI reads the configuration of the report listing function.
func MustLoadAPI() Env {
	loc, err := time.LoadLocation(get("REPORT_TIMEZONE", "Europe/Rome"))
	if err != nil {
		panic(fmt.Errorf("invalid REPORT_TIMEZONE: %w", err))
	}
	var errs []error
	ttl := seconds("S3_LINK_TTL_SECONDS", 3600, &errs)
	if len(errs) > 0 {
		panic(errors.Join(errs...))
	}
	return Env{
		LogLevel:      get("LOG_LEVEL", "info"),
		Region:        get("AWS_REGION", "us-east-1"),
		Table:         must("DDB_TABLE"),
		LinkTTL:       ttl,
		DevBypassAuth: get("DEV_BYPASS_AUTH", "") == "true",
		Location:      loc,
	}
}

// get returns the value of the environment variable k or def if not set.
func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// must returns the value of the environment variable k or panics if not set.
func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic(fmt.Errorf("missing env %s", k))
	}
	return v
}

func requireEnv(errs []error, k, v string) []error {
	if v == "" {
		return append(errs, fmt.Errorf("missing env %s", k))
	}
	return errs
}

func seconds(k string, def int, errs *[]error) time.Duration {
	n, err := strconv.Atoi(get(k, strconv.Itoa(def)))
	if err != nil || n <= 0 {
		*errs = append(*errs, fmt.Errorf("invalid %s: must be a positive number of seconds", k))
		return time.Duration(def) * time.Second
	}
	return time.Duration(n) * time.Second
}
