package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	CORSOrigins       string `mapstructure:"CORS_ORIGINS"`

	// Redis configuration.
	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB       int    `mapstructure:"REDIS_CACHE_DB"`
	RedisNotifyQueueDB int    `mapstructure:"REDIS_NOTIFY_QUEUE_DB"`

	// Payments. PaymentGateway is "razorpay", "stripe" or empty to disable.
	PaymentGateway   string        `mapstructure:"PAYMENT_GATEWAY"`
	PaymentKeyID     string        `mapstructure:"PAYMENT_KEY_ID"`
	PaymentKeySecret string        `mapstructure:"PAYMENT_KEY_SECRET"`
	PaymentCurrency  string        `mapstructure:"PAYMENT_CURRENCY"`
	PaymentAPIURL    string        `mapstructure:"PAYMENT_API_URL"`
	StripeKey        string        `mapstructure:"STRIPE_KEY"`
	OrderTTL         time.Duration `mapstructure:"ORDER_TTL"`

	// Firebase service account file; notifications are disabled when empty.
	FirebaseCredentials string `mapstructure:"FIREBASE_CREDENTIALS"`
	// Delay before an unpaid booking gets a reminder push. Zero disables it.
	PaymentReminderDelay time.Duration `mapstructure:"PAYMENT_REMINDER_DELAY"`

	// Client (bookingctl) settings.
	APIBaseURL   string        `mapstructure:"API_BASE_URL"`
	APIToken     string        `mapstructure:"API_TOKEN"`
	Role         string        `mapstructure:"ROLE"`
	PartyID      string        `mapstructure:"PARTY_ID"`
	MerchantName string        `mapstructure:"MERCHANT_NAME"`
	HTTPTimeout  time.Duration `mapstructure:"HTTP_TIMEOUT"`
	CheckoutURL  string        `mapstructure:"CHECKOUT_URL"`
}

var AppConfig Config

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "7373")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_NOTIFY_QUEUE_DB", 3)
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "localserve")
	v.SetDefault("PAYMENT_GATEWAY", "")
	v.SetDefault("PAYMENT_CURRENCY", "INR")
	v.SetDefault("PAYMENT_API_URL", "https://api.razorpay.com/v1")
	v.SetDefault("ORDER_TTL", 30*time.Minute)
	v.SetDefault("PAYMENT_REMINDER_DELAY", 2*time.Hour)
	v.SetDefault("API_BASE_URL", "http://localhost:7373/api")
	v.SetDefault("ROLE", "user")
	v.SetDefault("MERCHANT_NAME", "Local Services")
	v.SetDefault("HTTP_TIMEOUT", time.Duration(0))
	v.SetDefault("CHECKOUT_URL", "")
}

// LoadConfig reads config.yaml (current or ./config directory) and the
// environment into AppConfig.
func LoadConfig() {
	if err := Load(viper.GetViper()); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// Load fills AppConfig from v. Callers that bind command line flags pass
// their own viper instance.
func Load(v *viper.Viper) error {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	// Automatically use environment variables where available.
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}
	return v.Unmarshal(&AppConfig)
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(AppConfig.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
