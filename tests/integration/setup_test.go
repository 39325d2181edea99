//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"objcache/config"
	"objcache/internal/app"
)

// TestServerConfig configures how the test server is set up.
type TestServerConfig struct {
	// Tenants are registered (or imported) at startup
	Tenants []string

	// KeyPrefix isolates each test's exports in Redis
	KeyPrefix string

	// Compress brotli-compresses exports
	Compress bool
}

// TestServerFixture holds test server resources.
type TestServerFixture struct {
	// ServerURL is the base URL of the test server
	ServerURL string

	// App is the running application
	App *app.App
}

// SetupTestServer starts the application on a free port with Redis export.
func SetupTestServer(t *testing.T, cfg TestServerConfig) *TestServerFixture {
	t.Helper()

	port, err := findAvailablePort()
	require.NoError(t, err, "failed to find available port")

	application, err := app.New(GetTestContext(), buildAppConfig(cfg, port))
	require.NoError(t, err, "failed to create app")

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	go func() {
		_ = application.Start(fmt.Sprintf("127.0.0.1:%d", port))
	}()

	require.NoError(t, waitForServer(serverURL+"/health"), "server failed to become healthy")

	return &TestServerFixture{ServerURL: serverURL, App: application}
}

// Shutdown gracefully shuts down the test server, exporting every tenant.
func (f *TestServerFixture) Shutdown(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, f.App.Shutdown(ctx), "failed to shutdown app")
}

// Do sends a JSON request and decodes a JSON response into out when out is not nil.
func (f *TestServerFixture) Do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(GetTestContext(), method, f.ServerURL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func buildAppConfig(cfg TestServerConfig, port int) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:          fmt.Sprintf("%d", port),
			BodySizeLimit: "10M",
		},
		Cache: config.CacheConfig{
			Model:      "documents",
			Tenants:    cfg.Tenants,
			IndexPaths: []string{"kind"},
			Workers:    4,
		},
		Export: config.ExportConfig{
			Type:     "redis",
			Compress: cfg.Compress,
			Redis: config.RedisExportConfig{
				URL:       GetRedisURL(),
				KeyPrefix: cfg.KeyPrefix,
				TTL:       3600,
			},
		},
		Metrics: config.MetricsConfig{
			Enabled: false,
		},
	}
}

// waitForServer waits for the server to become healthy.
func waitForServer(healthURL string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	for i := 0; i < 50; i++ {
		resp, err := client.Get(healthURL)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server did not become healthy within timeout")
}

// findAvailablePort finds an available TCP port on loopback.
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = listener.Close() }()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
