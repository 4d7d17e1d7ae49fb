// Package cmd implements the ppmkctl commands.
//
// ppmkctl reads the PPMKFriends member spreadsheet, submits it to the
// provisioning service and saves the generated credentials as CSV.
package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppmkfriends/ppmkconnect/pkg/provisionsdk"
)

var (
	serverURL string
	email     string
	password  string
)

var rootCmd = &cobra.Command{
	Use:   "ppmkctl",
	Short: "PPMKFriends member provisioning",
	Long: `ppmkctl talks to the PPMKFriends provisioning service.

Sign-in details are read from flags or from PPMK_SERVER, PPMK_EMAIL and
PPMK_PASSWORD.

Examples:
  ppmkctl import members.xlsx
  ppmkctl users list -q engineering
  ppmkctl users set-role 01J... admin`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&serverURL, "server", envOr("PPMK_SERVER", "http://localhost:8080"), "provisioning service base URL")
	pf.StringVar(&email, "email", os.Getenv("PPMK_EMAIL"), "operator email")
	pf.StringVar(&password, "password", os.Getenv("PPMK_PASSWORD"), "operator password")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func client() *provisionsdk.Client {
	return provisionsdk.NewClient(serverURL)
}

func login(ctx context.Context) (*provisionsdk.Session, error) {
	if email == "" || password == "" {
		return nil, errors.New("operator email and password are required (--email/--password or PPMK_EMAIL/PPMK_PASSWORD)")
	}
	return client().Login(ctx, email, password)
}
