package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/isaacadu1245/MY-APP/internal/domain"
)

const testTariffJSON = `{"700": {"name": "1GB MTN", "network": "MTN", "capacity": "1"}, "1300": {"name": "2GB MTN", "network": "MTN", "capacity": "2"}}`

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	t.Setenv(key, value)
}

func loadTestConfig(t *testing.T) Config {
	t.Helper()
	viper.Reset()
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	return cfg
}

func TestLoadConfigDefaults(t *testing.T) {
	setEnv(t, "PAYSTACK_SECRET_KEY", "sk_test_123")
	setEnv(t, "DATAMART_API_KEY", "dm_key")
	setEnv(t, "TARIFF_TABLE", testTariffJSON)

	cfg := loadTestConfig(t)

	if cfg.ServerPort != "3000" {
		t.Fatalf("expected default port 3000, got %q", cfg.ServerPort)
	}
	if cfg.PaystackAPIBaseURL != "https://api.paystack.co" {
		t.Fatalf("expected default Paystack base URL, got %q", cfg.PaystackAPIBaseURL)
	}
	if cfg.DatamartAPIURL != "https://api.datamart.shop/buy" {
		t.Fatalf("expected default DataMart URL, got %q", cfg.DatamartAPIURL)
	}
	if cfg.RetentionMinutes != 1440 {
		t.Fatalf("expected default retention of 1440 minutes, got %d", cfg.RetentionMinutes)
	}
	if cfg.PendingTimeoutMinutes != 15 {
		t.Fatalf("expected default pending timeout of 15 minutes, got %d", cfg.PendingTimeoutMinutes)
	}
	if len(cfg.Tariffs) != 2 {
		t.Fatalf("expected two tariff entries, got %d", len(cfg.Tariffs))
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected a complete config to validate, got %v", err)
	}
}

func TestLoadConfigPortOverride(t *testing.T) {
	setEnv(t, "PAYSTACK_SECRET_KEY", "sk_test_123")
	setEnv(t, "DATAMART_API_KEY", "dm_key")
	setEnv(t, "TARIFF_TABLE", testTariffJSON)
	setEnv(t, "SERVER_PORT", "3000")
	setEnv(t, "PORT", "8080")

	cfg := loadTestConfig(t)
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected PORT to override SERVER_PORT, got %q", cfg.ServerPort)
	}
}

func TestLoadConfigTrimsBaseURL(t *testing.T) {
	setEnv(t, "PAYSTACK_SECRET_KEY", " sk_test_123 ")
	setEnv(t, "DATAMART_API_KEY", "dm_key")
	setEnv(t, "TARIFF_TABLE", testTariffJSON)
	setEnv(t, "PAYSTACK_API_BASE_URL", "https://api.paystack.co/")

	cfg := loadTestConfig(t)
	if cfg.PaystackAPIBaseURL != "https://api.paystack.co" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.PaystackAPIBaseURL)
	}
	if cfg.PaystackSecretKey != "sk_test_123" {
		t.Fatalf("expected whitespace trimmed from the secret, got %q", cfg.PaystackSecretKey)
	}
}

func TestLoadConfigInvalidTariffTable(t *testing.T) {
	setEnv(t, "PAYSTACK_SECRET_KEY", "sk_test_123")
	setEnv(t, "DATAMART_API_KEY", "dm_key")
	setEnv(t, "TARIFF_TABLE", `{"700": "not an object"}`)

	viper.Reset()
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Fatal("expected an error for an invalid tariff table")
	}
}

func TestParseTariffTable(t *testing.T) {
	table, err := ParseTariffTable(testTariffJSON)
	if err != nil {
		t.Fatalf("ParseTariffTable returned error: %v", err)
	}

	product, ok := table[700]
	if !ok {
		t.Fatal("expected an entry for amount 700")
	}
	if product.Network != "MTN" || product.Capacity != "1" {
		t.Fatalf("unexpected product for amount 700: %+v", product)
	}
}

func TestParseTariffTableErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "not json", raw: `nope`, want: "invalid TARIFF_TABLE"},
		{name: "non-numeric amount", raw: `{"abc": {"network": "MTN", "capacity": "1"}}`, want: "invalid TARIFF_TABLE amount"},
		{name: "missing network", raw: `{"700": {"capacity": "1"}}`, want: "must set network and capacity"},
		{name: "missing capacity", raw: `{"700": {"network": "MTN"}}`, want: "must set network and capacity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTariffTable(tt.raw)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error to mention %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateMissingFields(t *testing.T) {
	tariffs := domain.TariffTable{700: {Name: "1GB MTN", Network: "MTN", Capacity: "1"}}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "missing paystack secret",
			cfg:  Config{DatamartAPIKey: "dm", DatamartAPIURL: "https://api.datamart.shop/buy", Tariffs: tariffs},
			want: "PAYSTACK_SECRET_KEY",
		},
		{
			name: "missing datamart key",
			cfg:  Config{PaystackSecretKey: "sk", DatamartAPIURL: "https://api.datamart.shop/buy", Tariffs: tariffs},
			want: "DATAMART_API_KEY",
		},
		{
			name: "missing datamart url",
			cfg:  Config{PaystackSecretKey: "sk", DatamartAPIKey: "dm", Tariffs: tariffs},
			want: "DATAMART_API_URL",
		},
		{
			name: "empty tariff table",
			cfg:  Config{PaystackSecretKey: "sk", DatamartAPIKey: "dm", DatamartAPIURL: "https://api.datamart.shop/buy"},
			want: "TARIFF_TABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error to mention %q, got %v", tt.want, err)
			}
		})
	}
}
