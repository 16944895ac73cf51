package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups the scraper's secrets in the OS keychain
const KeyringService = "dmv-scraper"

var ErrNotFound = errors.New("secret not found")

// Get reads the secret stored for account
func Get(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", errors.New("keyring account name is empty")
	}
	v, err := keyring.Get(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, account)
	}
	if err != nil {
		return "", fmt.Errorf("keyring %s: %w", account, err)
	}
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNotFound, account)
	}
	return v, nil
}

func Set(account, value string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret is empty")
	}
	return keyring.Set(KeyringService, account, value)
}

func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}

// Resolve returns value when set, otherwise the keyring entry for account
func Resolve(value, account string) (string, error) {
	if v := strings.TrimSpace(value); v != "" {
		return v, nil
	}
	if strings.TrimSpace(account) == "" {
		return "", ErrNotFound
	}
	return Get(account)
}
