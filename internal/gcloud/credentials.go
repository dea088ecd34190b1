package gcloud

import (
	"database/sql"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/cloudinv/cloudinv/globals"
	"gopkg.in/ini.v1"
)

// Token is one cached gcloud session as stored in access_tokens.db.
// CREATE TABLE IF NOT EXISTS "access_tokens" (account_id TEXT PRIMARY KEY, access_token TEXT, token_expiry TIMESTAMP, rapt_token TEXT, id_token TEXT);
type Token struct {
	AccountID   string
	TokenExpiry string
}

// CredentialStore reads the local gcloud state under one home directory.
// HomeDir is injectable so tests can point it at a scratch tree.
type CredentialStore struct {
	HomeDir string
}

func NewCredentialStore() (*CredentialStore, error) {
	user, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}
	return &CredentialStore{HomeDir: user.HomeDir}, nil
}

// ActiveAccount returns the account configured in the default gcloud profile.
func (s *CredentialStore) ActiveAccount() (string, error) {
	configPath, err := s.defaultConfigPath()
	if err != nil {
		return "", err
	}
	cfg, err := ini.Load(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", configPath, err)
	}
	return cfg.Section("core").Key("account").String(), nil
}

// ReadAccessTokens lists the accounts with cached gcloud access tokens and
// their expiry times.
func (s *CredentialStore) ReadAccessTokens() ([]Token, error) {
	dbPath, err := s.accessTokensDBPath()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query("SELECT account_id, token_expiry from access_tokens;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []Token
	for rows.Next() {
		var t Token
		if err := rows.Scan(&t.AccountID, &t.TokenExpiry); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *CredentialStore) accessTokensDBPath() (string, error) {
	credsPath := filepath.Join(s.HomeDir, globals.GCP_GCLOUD_ACCESS_TOKENS_DB_PATH)
	if _, err := os.Stat(credsPath); os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read gcloud credentials at %s", credsPath)
	}
	return credsPath, nil
}

func (s *CredentialStore) defaultConfigPath() (string, error) {
	configPath := filepath.Join(s.HomeDir, globals.GCP_GCLOUD_DEFAULT_CONFIG_PATH)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read gcloud default config at %s", configPath)
	}
	return configPath, nil
}
