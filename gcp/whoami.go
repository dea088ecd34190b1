package gcp

import (
	"fmt"

	"github.com/cloudinv/cloudinv/globals"
	"github.com/cloudinv/cloudinv/internal"
	"github.com/cloudinv/cloudinv/internal/gcloud"
	"github.com/fatih/color"
	"github.com/kyokomi/emoji"
)

// WhoamiCommand lists the local gcloud sessions: the active account from the
// default profile and every account with a cached access token.
func WhoamiCommand(version string, wrapTable bool) error {
	fmt.Printf("[%s][%s] Enumerating local gcloud sessions...\n",
		color.CyanString(emoji.Sprintf(":cloud:cloudinv %s :cloud:", version)),
		color.CyanString(globals.GCP_WHOAMI_MODULE_NAME))

	store, err := gcloud.NewCredentialStore()
	if err != nil {
		return err
	}

	activeAccount, err := store.ActiveAccount()
	if err != nil {
		return err
	}

	tokens, err := store.ReadAccessTokens()
	if err != nil {
		return err
	}

	tableHead := []string{"Account", "Token Expiry", "Active"}
	var tableBody [][]string
	for _, token := range tokens {
		active := ""
		if token.AccountID == activeAccount {
			active = "*"
		}
		tableBody = append(tableBody, []string{token.AccountID, token.TokenExpiry, active})
	}
	if len(tableBody) == 0 {
		tableBody = append(tableBody, []string{activeAccount, "N/A", "*"})
	}
	internal.PrintTableToScreen(tableHead, tableBody, wrapTable)

	return nil
}
