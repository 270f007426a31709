package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// HTTP surface
	CORSAllowedOrigins    []string
	RateLimitRPS          float64
	RateLimitBurst        int
	BackgroundTaskTimeout time.Duration
	ShutdownTimeout       time.Duration

	// Lead defaults
	LeadSource  string
	PhoneFormat string
	PhoneDigits int
	PhoneRegion string

	// CRM webhook
	CRMWebhookURL string
	CRMTimeout    time.Duration
	CRMMaxRetries int

	// Marketing platform
	MarketingPlatform     string
	MarketingAPIKey       string
	MarketingListID       string
	MarketingTimeout      time.Duration
	MarketingMaxRetries   int
	BookingUpdateTimeout  time.Duration
	BrevoBaseURL          string
	MailerLiteBaseURL     string
	MailchimpBaseURL      string
	GroupCacheTTL         time.Duration
	BookingUpdateProvider string

	// Spreadsheet backup
	BackupWebhookURL          string
	GoogleSheetsSpreadsheetID string
	GoogleSheetsRange         string
	GoogleCredentialsFile     string

	// Confirmation email
	EmailProvider   string
	EmailTemplateID string
	EmailCC         string
	EmailFrom       string
	EmailFromName   string
	SendGridAPIKey  string

	// Cal.com
	CalWebhookSecret string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CORSAllowedOrigins:    getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:          getEnvAsFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:        getEnvAsInt("RATE_LIMIT_BURST", 10),
		BackgroundTaskTimeout: getEnvAsDuration("BACKGROUND_TASK_TIMEOUT", 30*time.Second),
		ShutdownTimeout:       getEnvAsDuration("SHUTDOWN_TIMEOUT", 20*time.Second),

		LeadSource:  getEnv("LEAD_SOURCE", "Lead Form"),
		PhoneFormat: strings.ToLower(strings.TrimSpace(getEnv("PHONE_FORMAT", "freeform"))),
		PhoneDigits: getEnvAsInt("PHONE_DIGITS", 10),
		PhoneRegion: strings.ToUpper(getEnv("PHONE_REGION", "US")),

		CRMWebhookURL: getEnv("CRM_WEBHOOK_URL", ""),
		CRMTimeout:    getEnvAsDuration("CRM_TIMEOUT", 6*time.Second),
		CRMMaxRetries: getEnvAsInt("CRM_MAX_RETRIES", 1),

		MarketingPlatform:     strings.ToLower(strings.TrimSpace(getEnv("MARKETING_PLATFORM", "brevo"))),
		MarketingAPIKey:       getEnvFirst("MARKETING_API_KEY", "BREVO_API_KEY"),
		MarketingListID:       getEnvFirst("MARKETING_LIST_ID", "BREVO_LIST_ID"),
		MarketingTimeout:      getEnvAsDuration("MARKETING_TIMEOUT", 10*time.Second),
		MarketingMaxRetries:   getEnvAsInt("MARKETING_MAX_RETRIES", 1),
		BookingUpdateTimeout:  getEnvAsDuration("BOOKING_UPDATE_TIMEOUT", 8*time.Second),
		BrevoBaseURL:          getEnv("BREVO_BASE_URL", ""),
		MailerLiteBaseURL:     getEnv("MAILERLITE_BASE_URL", ""),
		MailchimpBaseURL:      getEnv("MAILCHIMP_BASE_URL", ""),
		GroupCacheTTL:         getEnvAsDuration("GROUP_CACHE_TTL", 24*time.Hour),
		BookingUpdateProvider: strings.ToLower(strings.TrimSpace(getEnv("BOOKING_UPDATE_PROVIDER", "auto"))),

		BackupWebhookURL:          getEnv("BACKUP_WEBHOOK_URL", ""),
		GoogleSheetsSpreadsheetID: getEnv("GOOGLE_SHEETS_SPREADSHEET_ID", ""),
		GoogleSheetsRange:         getEnv("GOOGLE_SHEETS_RANGE", "Leads!A:H"),
		GoogleCredentialsFile:     getEnv("GOOGLE_CREDENTIALS_FILE", ""),

		EmailProvider:   strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		EmailTemplateID: getEnv("EMAIL_TEMPLATE_ID", ""),
		EmailCC:         getEnv("EMAIL_CC", ""),
		EmailFrom:       getEnv("EMAIL_FROM", ""),
		EmailFromName:   getEnv("EMAIL_FROM_NAME", "Lead Desk"),
		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),

		CalWebhookSecret: getEnv("CAL_WEBHOOK_SECRET", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFirst returns the first non-empty variable among keys.
func getEnvFirst(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
