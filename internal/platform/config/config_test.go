package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Catalog.Backend != BackendMemory {
		t.Errorf("expected memory catalog backend, got %s", cfg.Catalog.Backend)
	}
	if cfg.Cart.Backend != BackendMemory || cfg.Cart.StorageKey != "cart-storage" {
		t.Errorf("unexpected cart defaults: %+v", cfg.Cart)
	}
	if cfg.Cart.SessionTTL != 24*time.Hour {
		t.Errorf("unexpected session ttl: %s", cfg.Cart.SessionTTL)
	}
	if cfg.Events.Backend != BackendNone || cfg.Events.Topic != "orders" {
		t.Errorf("unexpected events defaults: %+v", cfg.Events)
	}
	if cfg.Storefront.MessagingHost != "wa.me" || cfg.Storefront.CurrencySymbol != "$" {
		t.Errorf("unexpected storefront defaults: %+v", cfg.Storefront)
	}
	if len(cfg.Events.KafkaBrokers) != 0 {
		t.Errorf("expected no brokers, got %v", cfg.Events.KafkaBrokers)
	}
	if cfg.Firestore.DialTimeout != 10*time.Second {
		t.Errorf("unexpected firestore dial timeout: %s", cfg.Firestore.DialTimeout)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":                "9090",
		"API_SERVER_IDLE_TIMEOUT":        "2m",
		"API_FIRESTORE_PROJECT_ID":       "madu-prod",
		"API_FIRESTORE_DIAL_TIMEOUT":     "3s",
		"API_CATALOG_BACKEND":            "FIRESTORE",
		"API_CART_BACKEND":               "redis",
		"API_CART_SESSION_TTL":           "6h",
		"API_REDIS_ADDR":                 "10.0.0.5:6379",
		"API_REDIS_PASSWORD":             "sm://redis-password",
		"API_REDIS_DB":                   "2",
		"API_EVENTS_BACKEND":             "kafka",
		"API_EVENTS_KAFKA_BROKERS":       "kafka-1:9092, kafka-2:9092,",
		"API_STOREFRONT_CURRENCY_SYMBOL": "ARS$",
	}

	var requested []string
	resolver := SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
		requested = append(requested, ref)
		return "resolved-password", nil
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" || cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Firestore.DialTimeout != 3*time.Second {
		t.Errorf("unexpected firestore dial timeout: %s", cfg.Firestore.DialTimeout)
	}
	if cfg.Catalog.Backend != BackendFirestore {
		t.Errorf("expected lowercased firestore backend, got %s", cfg.Catalog.Backend)
	}
	if cfg.Redis.Password != "resolved-password" || cfg.Redis.DB != 2 {
		t.Errorf("unexpected redis config: %+v", cfg.Redis)
	}
	if len(requested) != 1 || requested[0] != "secret://redis-password" {
		t.Errorf("expected normalised secret ref, got %v", requested)
	}
	if len(cfg.Events.KafkaBrokers) != 2 || cfg.Events.KafkaBrokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Events.KafkaBrokers)
	}
	if cfg.Events.PubSubProjectID != "madu-prod" || cfg.Secrets.ProjectID != "madu-prod" {
		t.Errorf("expected project ids to default to firestore project, got %q / %q", cfg.Events.PubSubProjectID, cfg.Secrets.ProjectID)
	}
	if cfg.Cart.SessionTTL != 6*time.Hour {
		t.Errorf("unexpected session ttl: %s", cfg.Cart.SessionTTL)
	}
	if cfg.Storefront.CurrencySymbol != "ARS$" {
		t.Errorf("unexpected currency symbol: %s", cfg.Storefront.CurrencySymbol)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"API_CATALOG_BACKEND": "firestore",
		"API_CART_BACKEND":    "redis",
		"API_EVENTS_BACKEND":  "carrier-pigeon",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := map[string]bool{"Firestore.ProjectID": true, "Redis.Addr": true, "Events.Backend": true}
	fields := vErr.Fields()
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	for _, field := range fields {
		if !want[field] {
			t.Errorf("unexpected field %s", field)
		}
	}
}

func TestLoadSecretWithoutResolverFails(t *testing.T) {
	env := map[string]string{"API_REDIS_PASSWORD": "secret://redis"}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(nil))
	var sErr *SecretError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected secret error, got %v", err)
	}
	if sErr.Ref != "secret://redis" {
		t.Fatalf("unexpected ref %s", sErr.Ref)
	}
}

func TestLoadReadsDotEnvWithLowestPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nexport API_SERVER_PORT=7070\nAPI_CART_STORAGE_KEY=\"shop-cart\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(path), WithoutSystemEnv(), WithEnvMap(map[string]string{"API_SERVER_PORT": "6060"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("expected env map to win, got %s", cfg.Server.Port)
	}
	if cfg.Cart.StorageKey != "shop-cart" {
		t.Errorf("expected dotenv storage key, got %s", cfg.Cart.StorageKey)
	}

	value, err := Lookup("API_SERVER_PORT", WithEnvFile(path), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if value != "7070" {
		t.Errorf("expected dotenv port, got %s", value)
	}
}
