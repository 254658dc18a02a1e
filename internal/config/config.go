package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	ServerURL      string
	UseMemoryQueue bool
	WorkerCount    int
	QueueBatchSize int

	// Facebook Messenger platform
	FBPageToken   string
	FBVerifyToken string
	FBAppSecret   string
	GraphAPIBase  string

	// Dialogflow
	DialogflowProjectID   string
	DialogflowLanguage    string
	DialogflowAccessToken string
	DialogflowBaseURL     string

	// OpenWeatherMap
	WeatherAPIKey  string
	WeatherBaseURL string

	// Email
	EmailProvider  string
	EmailFrom      string
	EmailFromName  string
	EmailTo        string
	SendGridAPIKey string

	// Stores
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	SessionStore  string

	// Outbound pacing
	MessageInterval time.Duration
	ProfileWait     time.Duration

	// AWS (SQS queue, SES email)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	InboundQueueURL     string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "5000"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ServerURL:      getEnv("SERVER_URL", ""),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", true),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),
		QueueBatchSize: getEnvAsInt("QUEUE_BATCH_SIZE", 5),

		FBPageToken:   getEnv("FB_PAGE_TOKEN", ""),
		FBVerifyToken: getEnv("FB_VERIFY_TOKEN", ""),
		FBAppSecret:   getEnv("FB_APP_SECRET", ""),
		GraphAPIBase:  getEnv("GRAPH_API_BASE", ""),

		DialogflowProjectID:   getEnv("GOOGLE_PROJECT_ID", ""),
		DialogflowLanguage:    getEnv("DF_LANGUAGE_CODE", "en-US"),
		DialogflowAccessToken: getEnv("DF_ACCESS_TOKEN", ""),
		DialogflowBaseURL:     getEnv("DF_BASE_URL", ""),

		WeatherAPIKey:  getEnv("WEATHER_API_KEY", ""),
		WeatherBaseURL: getEnv("WEATHER_BASE_URL", ""),

		EmailProvider:  getEnv("EMAIL_PROVIDER", "sendgrid"),
		EmailFrom:      getEnv("EMAIL_FROM", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "Job Bot"),
		EmailTo:        getEnv("EMAIL_TO", ""),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SessionStore:  getEnv("SESSION_STORE", "memory"),

		MessageInterval: getEnvAsDuration("MESSAGE_INTERVAL", 1100*time.Millisecond),
		ProfileWait:     getEnvAsDuration("PROFILE_WAIT", 2*time.Second),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		InboundQueueURL:     getEnv("INBOUND_QUEUE_URL", ""),
	}
}

// Validate fails fast when required configuration is absent. The process
// refuses to start rather than limping along without credentials.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"FB_PAGE_TOKEN", c.FBPageToken},
		{"FB_VERIFY_TOKEN", c.FBVerifyToken},
		{"FB_APP_SECRET", c.FBAppSecret},
		{"GOOGLE_PROJECT_ID", c.DialogflowProjectID},
		{"DF_LANGUAGE_CODE", c.DialogflowLanguage},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("config: missing %s", r.name)
		}
	}
	if !c.UseMemoryQueue && c.InboundQueueURL == "" {
		return fmt.Errorf("config: INBOUND_QUEUE_URL is required when USE_MEMORY_QUEUE is false")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
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
