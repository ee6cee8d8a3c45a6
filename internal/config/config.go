package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort     string
	AppEnv      string // dev | test | prod
	ServiceName string
	LogLevel    string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	UserPoolID         string
	EventBusName       string
	EventSource        string
	EmailVerified      bool
	TempPasswordLength int
	ExistenceCacheTTL  time.Duration

	MailDriver      string // "ses" | "smtp"
	SESFromEmail    string
	SESReplyToEmail string
	SESMaxSendRate  float64 // messages per second, 0 disables throttling
	SMTPHost        string
	SMTPPort        string
	SMTPUsername    string
	SMTPPassword    string

	ProductName        string
	ProductCLI         string // npm package named in the install and scan steps
	ProductLogoURL     string
	SupportEmail       string
	LoginURL           string
	AllowedLinkDomains []string

	DynamoTables    DynamoTables
	DynamoBootstrap bool          // create local tables on startup (LocalStack only)
	LedgerRetention time.Duration // how long completed provisioning keys are kept
	ProvisionLease  time.Duration // how long one delivery may hold a business key

	DeadLetterBucket   string
	DeadLetterTopicARN string
	MaxRedeliveries    int
	MaxEventAge        time.Duration

	IngressAPIKeyHash       string // bcrypt hash of the bus connection's API key
	IngressJWTPublicKeyPath string
	IngressRateLimit        float64
	IngressRateBurst        int
	AllowedOrigins          []string // CORS allowed origins for the preview endpoint
}

// DynamoTables holds the DynamoDB table names this worker reads or writes.
// Ledger is required; an empty consent or users name disables consent gating.
type DynamoTables struct {
	Consent         string
	Users           string
	UsersEmailIndex string
	Ledger          string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:     getEnv("APP_PORT", "3000"),
		AppEnv:      getEnv("STAGE", "dev"),
		ServiceName: getEnv("SERVICE_NAME", "service-identity"),
		LogLevel:    getEnv("LOG_LEVEL", ""),

		AWSRegion:      getEnv("AWS_REGION", "eu-west-2"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		UserPoolID:         getEnv("USER_POOL_ID", ""),
		EventBusName:       getEnv("EVENT_BUS_NAME", ""),
		EventSource:        getEnv("EVENT_SOURCE", "service.identity"),
		EmailVerified:      getEnvBool("EMAIL_VERIFIED", true),
		TempPasswordLength: getEnvInt("TEMP_PASSWORD_LENGTH", 16),
		ExistenceCacheTTL:  getEnvDuration("EXISTENCE_CACHE_TTL", 5*time.Minute),

		MailDriver:      getEnv("MAIL_DRIVER", "ses"),
		SESFromEmail:    getEnv("SES_FROM_EMAIL", "noreply@cdkinsights.dev"),
		SESReplyToEmail: getEnv("SES_REPLY_TO_EMAIL", ""),
		SESMaxSendRate:  getEnvFloat("SES_MAX_SEND_RATE", 14),
		SMTPHost:        getEnv("SMTP_HOST", "localhost"),
		SMTPPort:        getEnv("SMTP_PORT", "1025"),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),

		ProductName:        getEnv("PRODUCT_NAME", "CDK Insights"),
		ProductCLI:         getEnv("PRODUCT_CLI", "cdk-insights"),
		ProductLogoURL:     getEnv("PRODUCT_LOGO_URL", "https://cdk-insights.s3.eu-west-2.amazonaws.com/cdk-insights-cube.png"),
		SupportEmail:       getEnv("SUPPORT_EMAIL", "support@cdkinsights.dev"),
		LoginURL:           getEnv("LOGIN_URL", "https://cdkinsights.dev/login"),
		AllowedLinkDomains: getEnvList("ALLOWED_LINK_DOMAINS", "cdkinsights.dev,localhost"),

		DynamoTables: DynamoTables{
			Consent:         getEnv("CONSENT_TABLE_NAME", ""),
			Users:           getEnv("USERS_TABLE_NAME", ""),
			UsersEmailIndex: getEnv("USERS_EMAIL_INDEX", "EmailIndex"),
			Ledger:          getEnv("LEDGER_TABLE_NAME", ""),
		},
		DynamoBootstrap: getEnvBool("DYNAMO_BOOTSTRAP", false),
		LedgerRetention: getEnvDuration("LEDGER_RETENTION", 90*24*time.Hour),
		ProvisionLease:  getEnvDuration("PROVISION_LEASE", 2*time.Minute),

		DeadLetterBucket:   getEnv("DEAD_LETTER_BUCKET", ""),
		DeadLetterTopicARN: getEnv("DEAD_LETTER_TOPIC_ARN", ""),
		MaxRedeliveries:    getEnvInt("MAX_REDELIVERIES", 2),
		MaxEventAge:        getEnvDuration("MAX_EVENT_AGE", time.Hour),

		IngressAPIKeyHash:       getEnv("INGRESS_API_KEY_HASH", ""),
		IngressJWTPublicKeyPath: getEnv("INGRESS_JWT_PUBLIC_KEY_PATH", ""),
		IngressRateLimit:        getEnvFloat("INGRESS_RATE_LIMIT", 50),
		IngressRateBurst:        getEnvInt("INGRESS_RATE_BURST", 100),
		AllowedOrigins:          getEnvList("ALLOWED_ORIGINS", "*"),
	}
}

// IsProduction reports whether the worker runs in the prod stage.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "prod"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	var out []string
	for _, s := range strings.Split(getEnv(key, fallback), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
