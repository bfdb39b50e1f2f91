/**
 * @description
 * This package handles the configuration management for the service. It uses
 * the Viper library to read configuration from environment variables or an
 * optional .env file. Required fields are validated once at startup so a
 * misconfigured deployment fails fast instead of rejecting live payments at
 * request time.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 * - internal/domain: The tariff table model.
 */

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/isaacadu1245/MY-APP/internal/domain"
)

// Config holds all the configuration variables for the service. These values
// are loaded from environment variables.
type Config struct {
	ServerPort               string `mapstructure:"SERVER_PORT"`
	PaystackSecretKey        string `mapstructure:"PAYSTACK_SECRET_KEY"`
	PaystackAPIBaseURL       string `mapstructure:"PAYSTACK_API_BASE_URL"`
	DatamartAPIURL           string `mapstructure:"DATAMART_API_URL"`
	DatamartAPIKey           string `mapstructure:"DATAMART_API_KEY"`
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisReceiptPrefix       string `mapstructure:"REDIS_RECEIPT_PREFIX"`
	RabbitMQURL              string `mapstructure:"RABBITMQ_URL"`
	FulfillmentEventExchange string `mapstructure:"FULFILLMENT_EVENT_EXCHANGE"`
	TariffTableJSON          string `mapstructure:"TARIFF_TABLE"`
	RetentionMinutes         int    `mapstructure:"IDEMPOTENCY_RETENTION_MINUTES"`
	PendingTimeoutMinutes    int    `mapstructure:"PENDING_TIMEOUT_MINUTES"`
	AllowedOrigins           string `mapstructure:"ALLOWED_ORIGINS"`
	CheckoutEmailDomain      string `mapstructure:"CHECKOUT_EMAIL_DOMAIN"`

	// Tariffs is parsed from TariffTableJSON during LoadConfig.
	Tariffs domain.TariffTable `mapstructure:"-"`
}

// LoadConfig reads configuration from environment variables from the given
// path. It uses Viper to automatically bind environment variables to the
// Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "3000")
	viper.SetDefault("PAYSTACK_API_BASE_URL", "https://api.paystack.co")
	viper.SetDefault("DATAMART_API_URL", "https://api.datamart.shop/buy")
	viper.SetDefault("REDIS_RECEIPT_PREFIX", "bundles:receipt")
	viper.SetDefault("FULFILLMENT_EVENT_EXCHANGE", "fulfillment_events")
	viper.SetDefault("IDEMPOTENCY_RETENTION_MINUTES", 1440)
	viper.SetDefault("PENDING_TIMEOUT_MINUTES", 15)
	viper.SetDefault("ALLOWED_ORIGINS", "*")
	viper.SetDefault("CHECKOUT_EMAIL_DOMAIN", "bangerhitz.app")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("PAYSTACK_SECRET_KEY")
	_ = viper.BindEnv("PAYSTACK_API_BASE_URL")
	_ = viper.BindEnv("DATAMART_API_URL")
	_ = viper.BindEnv("DATAMART_API_KEY")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RECEIPT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("FULFILLMENT_EVENT_EXCHANGE")
	_ = viper.BindEnv("TARIFF_TABLE")
	_ = viper.BindEnv("IDEMPOTENCY_RETENTION_MINUTES")
	_ = viper.BindEnv("PENDING_TIMEOUT_MINUTES")
	_ = viper.BindEnv("ALLOWED_ORIGINS")
	_ = viper.BindEnv("CHECKOUT_EMAIL_DOMAIN")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
		err = nil
	}

	// Unmarshal the configuration into the Config struct.
	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.PaystackSecretKey = strings.TrimSpace(config.PaystackSecretKey)
	config.DatamartAPIKey = strings.TrimSpace(config.DatamartAPIKey)
	config.PaystackAPIBaseURL = strings.TrimSuffix(strings.TrimSpace(config.PaystackAPIBaseURL), "/")

	if config.RetentionMinutes <= 0 {
		config.RetentionMinutes = 1440
	}
	if config.PendingTimeoutMinutes <= 0 {
		config.PendingTimeoutMinutes = 15
	}

	if strings.TrimSpace(config.TariffTableJSON) != "" {
		config.Tariffs, err = ParseTariffTable(config.TariffTableJSON)
		if err != nil {
			return
		}
	}

	return
}

// ParseTariffTable decodes the TARIFF_TABLE environment value, a JSON object
// keyed by payment amount in minor currency units:
//
//	{"700": {"name": "1GB MTN", "network": "MTN", "capacity": "1"}}
func ParseTariffTable(raw string) (domain.TariffTable, error) {
	var byAmount map[string]domain.Product
	if err := json.Unmarshal([]byte(raw), &byAmount); err != nil {
		return nil, fmt.Errorf("invalid TARIFF_TABLE: %w", err)
	}

	table := make(domain.TariffTable, len(byAmount))
	for key, product := range byAmount {
		amount, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TARIFF_TABLE amount %q: %w", key, err)
		}
		if product.Network == "" || product.Capacity == "" {
			return nil, fmt.Errorf("TARIFF_TABLE entry %q must set network and capacity", key)
		}
		table[amount] = product
	}
	return table, nil
}

// Validate reports the first missing required setting. Called once at
// startup; a failure here must abort boot.
func (c Config) Validate() error {
	if c.PaystackSecretKey == "" {
		return errors.New("PAYSTACK_SECRET_KEY must be configured")
	}
	if c.DatamartAPIKey == "" {
		return errors.New("DATAMART_API_KEY must be configured")
	}
	if strings.TrimSpace(c.DatamartAPIURL) == "" {
		return errors.New("DATAMART_API_URL must be configured")
	}
	if len(c.Tariffs) == 0 {
		return errors.New("TARIFF_TABLE must be configured with at least one plan")
	}
	return nil
}
