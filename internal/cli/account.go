package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Account is the locally remembered identity used for orders.
type Account struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username,omitempty"`
}

func baseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".bdx")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func accountPath() (string, error) {
	dir, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "account.json"), nil
}

func SaveAccount(a Account) error {
	path, err := accountPath()
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o600)
}

func LoadAccount() (Account, error) {
	path, err := accountPath()
	if err != nil {
		return Account{}, err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return Account{}, err
	}
	var a Account
	if err := json.Unmarshal(body, &a); err != nil {
		return Account{}, err
	}
	if strings.TrimSpace(a.AccountID) == "" {
		return Account{}, fmt.Errorf("no account id found, run `bdx account use` first")
	}
	return a, nil
}

func ClearAccount() error {
	path, err := accountPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return os.Remove(path)
}
