package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/rowmap"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/sheet"
	"github.com/ppmkfriends/ppmkconnect/pkg/cryptox"
	"github.com/ppmkfriends/ppmkconnect/pkg/provisionsdk"
)

var importCmd = &cobra.Command{
	Use:   "import FILE.xlsx",
	Short: "Create accounts from a member spreadsheet",
	Long: `Read the first sheet of FILE.xlsx, generate a password for every row and
create the accounts. Credentials of created accounts are saved to
user-credentials-YYYY-MM-DD.csv in the output directory.

Rows without an email or full name are reported and skipped.

Examples:
  ppmkctl import members.xlsx
  ppmkctl import members.xlsx --dry-run
  ppmkctl import members.xlsx --out ./exports`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().String("out", ".", "directory for the credentials CSV")
	importCmd.Flags().Bool("dry-run", false, "validate the spreadsheet without creating accounts")
}

func runImport(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("out")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	w := cmd.OutOrStdout()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := sheet.ReadRows(f)
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}

	reqs, invalid, err := rowmap.New(cryptox.GenerateSecret).MapSheet(rows)
	if err != nil {
		return err
	}
	renderInvalid(w, invalid)

	if dryRun {
		fmt.Fprintf(w, "%d rows ready to import, %d skipped.\n", len(reqs), len(invalid))
		return nil
	}
	if len(reqs) == 0 {
		return errors.New("no valid rows to import")
	}

	ctx := cmd.Context()
	sess, err := login(ctx)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	me, err := sess.Me(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	fmt.Fprintf(w, "Creating %d users...\n", len(reqs))
	resp, err := sess.BulkCreateUsers(ctx, provisionsdk.BulkCreateUsersRequest{
		Users:     toSDKAccounts(reqs),
		CreatedBy: me.UserID,
	})
	if err != nil {
		return fmt.Errorf("bulk create: %w", err)
	}

	if err := renderResults(w, resp.Results); err != nil {
		return err
	}
	fmt.Fprintf(w, "Created %d of %d users, %d emails sent.\n",
		resp.Summary.Success, resp.Summary.Total, resp.Summary.EmailsSent)

	path, err := exportCredentials(outDir, resp.Results, time.Now())
	if err != nil {
		return fmt.Errorf("export credentials: %w", err)
	}
	if path != "" {
		fmt.Fprintf(w, "Credentials saved to %s\n", path)
	}
	return nil
}

func toSDKAccounts(reqs []domain.AccountRequest) []provisionsdk.AccountRequest {
	out := make([]provisionsdk.AccountRequest, len(reqs))
	for i, r := range reqs {
		out[i] = provisionsdk.AccountRequest{
			Email:       r.Email,
			Password:    r.Password,
			FullName:    r.FullName,
			Role:        r.Role,
			ProfileData: provisionsdk.ProfileData(r.Profile),
		}
	}
	return out
}

func renderInvalid(w io.Writer, invalid []rowmap.RowError) {
	for _, re := range invalid {
		fields := make([]string, 0, len(re.Fields))
		for name, msg := range re.Fields {
			fields = append(fields, name+": "+msg)
		}
		sort.Strings(fields)
		fmt.Fprintf(w, "skipping line %d (%s): %s\n", re.Line, re.Email, strings.Join(fields, "; "))
	}
}

func renderResults(w io.Writer, results []provisionsdk.RowResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "EMAIL\tSTATUS\tEMAILED\tDETAIL")
	for _, r := range results {
		status, detail := "created", strings.Join(r.Warnings, "; ")
		if !r.Success {
			status, detail = "failed", r.Error
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", r.Email, status, r.EmailSent, detail)
	}
	return tw.Flush()
}

// exportCredentials writes successful rows and returns the file path, or ""
// when nothing was created.
func exportCredentials(dir string, results []provisionsdk.RowResult, now time.Time) (string, error) {
	var creds []sheet.Credential
	for _, r := range results {
		if r.Success {
			creds = append(creds, sheet.Credential{Email: r.Email, Password: r.Password, FullName: r.FullName})
		}
	}
	if len(creds) == 0 {
		return "", nil
	}

	path := filepath.Join(dir, sheet.CredentialsFileName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", err
	}
	if err := sheet.WriteCredentialsCSV(f, creds, now); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}
