package cmd

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/sheet"
	"github.com/ppmkfriends/ppmkconnect/pkg/provisionsdk"
)

// fakeServer answers the endpoints the CLI uses and records the bulk body.
type fakeServer struct {
	*httptest.Server
	bulk provisionsdk.BulkCreateUsersRequest
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		var req provisionsdk.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "operator-pass" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid email or password"}`))
			return
		}
		writeJSON(w, provisionsdk.TokenResponse{AccessToken: "tok", TokenType: "Bearer", ExpiresIn: 900, Role: "superadmin"})
	})
	mux.HandleFunc("GET /v1/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, provisionsdk.MeResponse{UserID: "op-1", Email: "ops@ppmk.org", Role: "superadmin"})
	})
	mux.HandleFunc("POST /v1/users/bulk", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&fs.bulk))

		resp := provisionsdk.BulkCreateUsersResponse{}
		for _, u := range fs.bulk.Users {
			res := provisionsdk.RowResult{Email: u.Email}
			if strings.HasPrefix(u.Email, "taken") {
				res.Error = "a user with this email address has already been registered"
				resp.Summary.Failed++
			} else {
				res.Success, res.EmailSent = true, true
				res.UserID, res.Password, res.FullName = "id-"+u.Email, u.Password, u.FullName
				resp.Summary.Success++
				resp.Summary.EmailsSent++
			}
			resp.Results = append(resp.Results, res)
		}
		resp.Summary.Total = len(resp.Results)
		writeJSON(w, resp)
	})
	mux.HandleFunc("GET /v1/users", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "eng", r.URL.Query().Get("q"))
		writeJSON(w, provisionsdk.ListUsersResponse{Users: []provisionsdk.UserSummary{
			{UserID: "u1", Email: "aisyah@ppmk.org", FullName: "Aisyah Rahman", StudyCourse: "Engineering", Role: "member"},
		}})
	})
	mux.HandleFunc("PUT /v1/users/{id}/role", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "u1", r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func memberSheet(t *testing.T, rows ...[]any) string {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	sheetName := f.GetSheetName(0)
	all := append([][]any{{"email", "fullName", "role", "studyCourse"}}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheetName, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "members.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestImportCreatesUsersAndExportsCredentials(t *testing.T) {
	srv := newFakeServer(t)
	outDir := t.TempDir()
	file := memberSheet(t,
		[]any{"aisyah@ppmk.org", "Aisyah Rahman", "", "Engineering"},
		[]any{"", "No Email", "", ""},
		[]any{"taken@ppmk.org", "Taken User", "admin", ""},
		[]any{"lim@ppmk.org", "Lim, Wei Jie", "member", ""},
	)

	out, err := execute(t, "import", file,
		"--server", srv.URL, "--email", "ops@ppmk.org", "--password", "operator-pass",
		"--out", outDir, "--dry-run=false")
	require.NoError(t, err)

	require.Equal(t, "op-1", srv.bulk.CreatedBy)
	require.Len(t, srv.bulk.Users, 3)
	require.Equal(t, "member", srv.bulk.Users[0].Role)
	require.Equal(t, "Engineering", *srv.bulk.Users[0].ProfileData.StudyCourse)
	for _, u := range srv.bulk.Users {
		require.NotEmpty(t, u.Password)
	}

	require.Contains(t, out, "skipping line 3")
	require.Contains(t, out, "Created 2 of 3 users, 2 emails sent.")
	require.Contains(t, out, "already been registered")

	path := filepath.Join(outDir, sheet.CredentialsFileName(time.Now()))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, []string{"Email", "Password", "Full Name", "Created Date"}, records[0])
	require.Equal(t, "aisyah@ppmk.org", records[1][0])
	require.Equal(t, sheet.EscapeCell(srv.bulk.Users[0].Password), records[1][1])
	require.Equal(t, "Lim, Wei Jie", records[2][2])
}

func TestImportDryRunDoesNotContactServer(t *testing.T) {
	file := memberSheet(t,
		[]any{"aisyah@ppmk.org", "Aisyah Rahman", "", ""},
		[]any{"broken", "", "", ""},
	)

	out, err := execute(t, "import", file, "--server", "http://127.0.0.1:1", "--dry-run")
	require.NoError(t, err)
	require.Contains(t, out, "1 rows ready to import, 1 skipped.")
	require.Contains(t, out, "email:")
	require.Contains(t, out, "fullName:")
}

func TestImportRequiresCredentials(t *testing.T) {
	file := memberSheet(t, []any{"aisyah@ppmk.org", "Aisyah Rahman", "", ""})

	_, err := execute(t, "import", file, "--server", "http://127.0.0.1:1",
		"--email", "", "--password", "", "--dry-run=false")
	require.Error(t, err)
	require.Contains(t, err.Error(), "operator email and password are required")
}

func TestImportRejectsWrongPassword(t *testing.T) {
	srv := newFakeServer(t)
	file := memberSheet(t, []any{"aisyah@ppmk.org", "Aisyah Rahman", "", ""})

	_, err := execute(t, "import", file, "--server", srv.URL,
		"--email", "ops@ppmk.org", "--password", "wrong", "--dry-run=false")
	require.ErrorIs(t, err, provisionsdk.ErrInvalidGrant)
}

func TestUsersCommands(t *testing.T) {
	srv := newFakeServer(t)
	auth := []string{"--server", srv.URL, "--email", "ops@ppmk.org", "--password", "operator-pass"}

	out, err := execute(t, append([]string{"users", "list", "-q", "eng"}, auth...)...)
	require.NoError(t, err)
	require.Contains(t, out, "Aisyah Rahman")
	require.Contains(t, out, "Engineering")

	out, err = execute(t, append([]string{"users", "set-role", "u1", "admin"}, auth...)...)
	require.NoError(t, err)
	require.Contains(t, out, "Role of u1 set to admin.")
}
