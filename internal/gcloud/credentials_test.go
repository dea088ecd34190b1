package gcloud_test

import (
	"database/sql"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/cloudinv/cloudinv/internal/gcloud"
)

func writeGcloudConfig(t *testing.T, homeDir string, contents string) {
	t.Helper()
	configDir := filepath.Join(homeDir, ".config", "gcloud", "configurations")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config_default"), []byte(contents), 0600); err != nil {
		t.Fatal(err)
	}
}

func writeAccessTokensDB(t *testing.T, homeDir string, tokens []gcloud.Token) {
	t.Helper()
	gcloudDir := filepath.Join(homeDir, ".config", "gcloud")
	if err := os.MkdirAll(gcloudDir, 0700); err != nil {
		t.Fatal(err)
	}
	db, err := sql.Open("sqlite", filepath.Join(gcloudDir, "access_tokens.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS "access_tokens" (account_id TEXT PRIMARY KEY, access_token TEXT, token_expiry TIMESTAMP, rapt_token TEXT, id_token TEXT)`); err != nil {
		t.Fatal(err)
	}
	for _, token := range tokens {
		if _, err := db.Exec(`INSERT INTO access_tokens (account_id, token_expiry) VALUES (?, ?)`, token.AccountID, token.TokenExpiry); err != nil {
			t.Fatal(err)
		}
	}
}

func TestActiveAccount(t *testing.T) {
	homeDir := t.TempDir()
	writeGcloudConfig(t, homeDir, "[core]\naccount = alice@example.com\nproject = proj-a\n")

	store := &gcloud.CredentialStore{HomeDir: homeDir}
	got, err := store.ActiveAccount()
	if err != nil {
		t.Fatalf("ActiveAccount() error = %v", err)
	}
	if got != "alice@example.com" {
		t.Errorf("ActiveAccount() = %q, want alice@example.com", got)
	}
}

func TestActiveAccountMissingConfig(t *testing.T) {
	store := &gcloud.CredentialStore{HomeDir: t.TempDir()}
	if _, err := store.ActiveAccount(); err == nil {
		t.Fatalf("ActiveAccount() error = nil, want missing-config failure")
	}
}

func TestReadAccessTokens(t *testing.T) {
	homeDir := t.TempDir()
	want := []gcloud.Token{
		{AccountID: "alice@example.com", TokenExpiry: "2024-06-15 11:00:00"},
		{AccountID: "svc@proj-a.iam.gserviceaccount.com", TokenExpiry: "2024-06-15 12:00:00"},
	}
	writeAccessTokensDB(t, homeDir, want)

	store := &gcloud.CredentialStore{HomeDir: homeDir}
	got, err := store.ReadAccessTokens()
	if err != nil {
		t.Fatalf("ReadAccessTokens() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadAccessTokens() = %+v, want %+v", got, want)
	}
}

func TestReadAccessTokensMissingDB(t *testing.T) {
	store := &gcloud.CredentialStore{HomeDir: t.TempDir()}
	if _, err := store.ReadAccessTokens(); err == nil {
		t.Fatalf("ReadAccessTokens() error = nil, want missing-db failure")
	}
}
