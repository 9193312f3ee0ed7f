package keyring

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/dayplan/internal/constants"
)

var (
	// ErrNotFound is returned when no secret is stored under a name
	ErrNotFound = errors.New("secret not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Secret names stored under the application's keyring service.
const (
	ConnectionString = constants.DefaultKeyringUser
	TelegramToken    = "telegram-token"
	SMTPPassword     = "smtp-password"
)

// envVars lets every secret be supplied through the environment instead.
var envVars = map[string]string{
	ConnectionString: "DAYPLAN_DB_CONNECTION",
	TelegramToken:    "DAYPLAN_TELEGRAM_TOKEN",
	SMTPPassword:     "DAYPLAN_SMTP_PASSWORD",
}

var lookupEnv = os.LookupEnv

// Names lists the secrets the application knows about.
func Names() []string {
	return []string{ConnectionString, TelegramToken, SMTPPassword}
}

func Get(name string) (string, error) {
	v, err := keyring.Get(constants.AppName, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return v, nil
}

func Set(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if err := keyring.Set(constants.AppName, name, value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", name, err)
	}
	return nil
}

func Delete(name string) error {
	if err := keyring.Delete(constants.AppName, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", name, err)
	}
	return nil
}

// Lookup prefers the secret's environment variable and falls back to the
// keyring. A missing secret yields "" and ErrNotFound.
func Lookup(name string) (string, error) {
	if env, ok := envVars[name]; ok {
		if v, ok := lookupEnv(env); ok && v != "" {
			return v, nil
		}
	}
	return Get(name)
}

// IsAvailable is a best-effort probe of the OS keyring.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
