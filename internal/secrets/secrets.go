package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups the app's credentials in the OS keychain.
const KeyringService = "visahunt"

// Well-known credential names.
const (
	SMTPPassword  = "smtp_password"
	OpenAIKey     = "openai_api_key"
	AnthropicKey  = "anthropic_api_key"
	TelegramToken = "telegram_token"
)

var ErrNotFound = errors.New("secret not found")

// EnvName is the environment variable consulted when the keychain has no
// entry: smtp_password -> VISAHUNT_SMTP_PASSWORD.
func EnvName(name string) string {
	return "VISAHUNT_" + strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
}

// Get returns the named secret from the keychain, falling back to the
// environment.
func Get(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("secret name is empty")
	}
	if v, err := keyring.Get(KeyringService, name); err == nil && strings.TrimSpace(v) != "" {
		return v, nil
	}
	if v := strings.TrimSpace(os.Getenv(EnvName(name))); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s (set it in the keychain or via %s)", ErrNotFound, name, EnvName(name))
}

func Set(name, value string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("secret name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret value is empty")
	}
	return keyring.Set(KeyringService, name, value)
}

func Delete(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("secret name is empty")
	}
	return keyring.Delete(KeyringService, name)
}
