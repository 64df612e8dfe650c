// api/config.go
package api

import (
	"fmt"
	"os"
	"strings"
)

// CognitoConfig holds everything needed to talk to the Cognito Forms API.
type CognitoConfig struct {
	BaseURL       string // e.g. https://www.cognitoforms.com/api
	FormID        string
	APIKey        string
	WebhookSecret string // optional; empty disables signature checks
	SelfBaseURL   string // optional; base URL of this deployment for the proxy fallback
}

// ShopifyConfig holds the Admin API coordinates for the target store.
type ShopifyConfig struct {
	Store      string // e.g. my-store.myshopify.com
	AdminToken string
	APIVersion string
}

// MailgunConfig configures operational email notifications. All three fields
// must be set for notifications to be sent.
type MailgunConfig struct {
	Domain string
	APIKey string
	To     string
}

// Config is the full configuration for the sync service. It is built once at
// process entry and passed into each client explicitly; no component reads
// environment variables on its own.
type Config struct {
	Cognito      CognitoConfig
	Shopify      ShopifyConfig
	Mailgun      MailgunConfig
	HandleSuffix string
}

const (
	defaultCognitoBase  = "https://www.cognitoforms.com/api"
	defaultAPIVersion   = "2024-07"
	defaultHandleSuffix = "-mbpr"
)

// FromEnv builds a Config from environment variables, applying defaults for
// the optional ones. Missing required variables are reported together so the
// operator sees the full list at once.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Cognito: CognitoConfig{
			BaseURL:       envOr("COGNITO_API_BASE", defaultCognitoBase),
			FormID:        strings.TrimSpace(os.Getenv("COGNITO_FORM_ID")),
			APIKey:        strings.TrimSpace(os.Getenv("COGNITO_API_KEY")),
			WebhookSecret: strings.TrimSpace(os.Getenv("COGNITO_WEBHOOK_SECRET")),
			SelfBaseURL:   strings.TrimSpace(os.Getenv("SELF_BASE_URL")),
		},
		Shopify: ShopifyConfig{
			Store:      strings.TrimSpace(os.Getenv("SHOPIFY_STORE")),
			AdminToken: strings.TrimSpace(os.Getenv("SHOPIFY_ADMIN_TOKEN")),
			APIVersion: envOr("SHOPIFY_API_VERSION", defaultAPIVersion),
		},
		Mailgun: MailgunConfig{
			Domain: strings.TrimSpace(os.Getenv("MAILGUN_DOMAIN")),
			APIKey: strings.TrimSpace(os.Getenv("MAIL_API_KEY")),
			To:     strings.TrimSpace(os.Getenv("NOTIFICATION_EMAIL_TO")),
		},
		HandleSuffix: envOr("HANDLE_SUFFIX", defaultHandleSuffix),
	}

	var missing []string
	if cfg.Cognito.FormID == "" {
		missing = append(missing, "COGNITO_FORM_ID")
	}
	if cfg.Cognito.APIKey == "" {
		missing = append(missing, "COGNITO_API_KEY")
	}
	if cfg.Shopify.Store == "" {
		missing = append(missing, "SHOPIFY_STORE")
	}
	if cfg.Shopify.AdminToken == "" {
		missing = append(missing, "SHOPIFY_ADMIN_TOKEN")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
