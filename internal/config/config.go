package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds all runtime configuration. It is built once at process start
// and passed by reference; nothing below the composition root reads the
// environment directly.
type Config struct {
	Port string

	// Admin back-office credentials and token signing secret.
	AdminEmail    string
	AdminPassword string
	JWTSecret     string

	// Shopify Admin API.
	StoreDomain      string // e.g. example.myshopify.com
	AdminAccessToken string
	APIVersion       string

	// Shopify Storefront API (customer portal).
	StorefrontAccessToken string

	AllowedOrigins []string
}

// Load populates a Config from the environment. It does not validate;
// call Validate before serving.
func Load() *Config {
	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		AdminEmail:            os.Getenv("ADMIN_EMAIL"),
		AdminPassword:         os.Getenv("ADMIN_PASSWORD"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		StoreDomain:           os.Getenv("SHOPIFY_STORE_DOMAIN"),
		AdminAccessToken:      os.Getenv("SHOPIFY_ADMIN_ACCESS_TOKEN"),
		APIVersion:            getEnv("SHOPIFY_API_VERSION", "2024-01"),
		StorefrontAccessToken: os.Getenv("SHOPIFY_STOREFRONT_ACCESS_TOKEN"),
	}

	origins := getEnv("ALLOWED_ORIGINS", "*")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	return cfg
}

// Validate reports the first missing required secret. The storefront token is
// optional: without it the portal routes refuse requests but the admin
// surface still works.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"ADMIN_EMAIL", c.AdminEmail},
		{"ADMIN_PASSWORD", c.AdminPassword},
		{"JWT_SECRET", c.JWTSecret},
		{"SHOPIFY_STORE_DOMAIN", c.StoreDomain},
		{"SHOPIFY_ADMIN_ACCESS_TOKEN", c.AdminAccessToken},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("missing required environment variable %s", r.name)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
