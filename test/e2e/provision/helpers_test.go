package provision_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ppmkfriends/ppmkconnect/pkg/provisionsdk"
)

const (
	testImageName = "ppmk-provision-test:latest"

	bootstrapToken = "test-bootstrap-token-12345"
	adminEmail     = "ops@ppmkfriends.my"
	adminPassword  = "Admin123!secure"
	adminName      = "PPMK Operations"
)

// TestMain builds the service image once and removes it afterwards.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building provisioning service image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up provisioning service image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/provisiond/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	_ = exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName).Run()
}

// setupContainer starts the service with the log mail sender and returns
// its base URL.
func setupContainer(t *testing.T) (string, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env: map[string]string{
			"BOOTSTRAP_TOKEN":         bootstrapToken,
			"PROVISION_DATABASE_FILE": "/data/provision.db",
			"PROVISION_PEPPER_FILE":   "/data/pepper",
			"PROVISION_RATE_PER_SEC":  "50",
			"ENV":                     "test",
			"LOG_LEVEL":               "info",
			"LOG_FORMAT":              "json",
			// Tests log in repeatedly; lift the strict and moderate limits.
			"RATELIMIT_STRICT_REQUESTS":   "1000",
			"RATELIMIT_STRICT_WINDOW_SEC": "60",
			"RATELIMIT_STRICT_BURST":      "1000",
			"RATELIMIT_MODERATE_REQUESTS": "1000",
			"RATELIMIT_MODERATE_BURST":    "1000",
		},
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return baseURL, cleanup
}

// bootstrapAdmin creates the superadmin and returns a logged-in session.
func bootstrapAdmin(t *testing.T, client *provisionsdk.Client) *provisionsdk.Session {
	t.Helper()

	_, err := client.Bootstrap(t.Context(), bootstrapToken, provisionsdk.BootstrapRequest{
		Email:    adminEmail,
		Password: adminPassword,
		FullName: adminName,
	})
	require.NoError(t, err)

	sess, err := client.Login(t.Context(), adminEmail, adminPassword)
	require.NoError(t, err)
	require.Equal(t, "superadmin", sess.Role())
	return sess
}

func assertHealthy(t *testing.T, health *provisionsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
