package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/dayplan/internal/cli"
	"github.com/julianstephens/dayplan/internal/keyring"
	"github.com/julianstephens/dayplan/internal/storage/postgres"
)

func checkName(name string) error {
	for _, n := range keyring.Names() {
		if n == name {
			return nil
		}
	}
	return fmt.Errorf("unknown secret %q, expected one of %s", name, strings.Join(keyring.Names(), ", "))
}

// KeyringSetCmd stores a secret in the OS keyring
type KeyringSetCmd struct {
	Name  string `arg:"" help:"Secret name (database-connection, telegram-token, smtp-password)."`
	Value string `arg:"" help:"Secret value."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	if err := checkName(cmd.Name); err != nil {
		return err
	}

	if cmd.Name == keyring.ConnectionString {
		if !postgres.IsConnString(cmd.Value) && !strings.Contains(cmd.Value, "host=") {
			return errors.New("connection string must be a valid PostgreSQL connection string")
		}
		if err := postgres.ValidateConnString(cmd.Value); err != nil {
			if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return fmt.Errorf("invalid connection string: %w", err)
			}
			// The keyring is encrypted, so embedded credentials are allowed here
			fmt.Println("⚠️  Warning: Connection string contains embedded credentials.")
			fmt.Println("   It will be stored as-is in the encrypted OS keyring.")
		}
	}

	if err := keyring.Set(cmd.Name, cmd.Value); err != nil {
		return err
	}
	fmt.Printf("✓ %s stored successfully in OS keyring\n", cmd.Name)
	return nil
}

// KeyringGetCmd prints a secret with any password masked
type KeyringGetCmd struct {
	Name string `arg:"" help:"Secret name."`
}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	if err := checkName(cmd.Name); err != nil {
		return err
	}
	v, err := keyring.Get(cmd.Name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s found in keyring. Use 'dayplan secret set' to store one", cmd.Name)
		}
		return err
	}
	if cmd.Name == keyring.ConnectionString {
		fmt.Println(maskPassword(v))
		return nil
	}
	fmt.Println(maskSecret(v))
	return nil
}

type KeyringDeleteCmd struct {
	Name string `arg:"" help:"Secret name."`
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	if err := checkName(cmd.Name); err != nil {
		return err
	}
	if err := keyring.Delete(cmd.Name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s found in keyring", cmd.Name)
		}
		return err
	}
	fmt.Printf("✓ %s deleted from OS keyring\n", cmd.Name)
	return nil
}

// KeyringStatusCmd checks the availability of the OS keyring
type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		fmt.Println("❌ OS keyring is not available on this system")
		return errors.New("keyring unavailable")
	}
	fmt.Println("✓ OS keyring is available")
	for _, name := range keyring.Names() {
		if _, err := keyring.Get(name); err == nil {
			fmt.Printf("✓ %s is stored\n", name)
		} else {
			fmt.Printf("ℹ %s is not stored\n", name)
		}
	}
	return nil
}

// maskPassword masks passwords in connection strings for display
func maskPassword(connStr string) string {
	if postgres.IsConnString(connStr) {
		if idx := strings.Index(connStr, "://"); idx != -1 {
			remaining := connStr[idx+3:]
			// The last @ separates user info from host
			if atIdx := strings.LastIndex(remaining, "@"); atIdx != -1 {
				userInfo := remaining[:atIdx]
				if colonIdx := strings.Index(userInfo, ":"); colonIdx != -1 {
					return connStr[:idx+3] + userInfo[:colonIdx] + ":****" + connStr[idx+3+atIdx:]
				}
			}
		}
	}

	if strings.Contains(connStr, "password=") {
		parts := strings.Fields(connStr)
		for i, part := range parts {
			if strings.HasPrefix(part, "password=") {
				parts[i] = "password=****"
			}
		}
		return strings.Join(parts, " ")
	}
	return connStr
}

// maskSecret keeps the last four characters of tokens long enough to spare them.
func maskSecret(v string) string {
	if len(v) <= 8 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}
