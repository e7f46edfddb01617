package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoad_defaults(t *testing.T) {
	req := require.New(t)
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(viper.New(), "")
	req.NoError(err)
	req.Equal("http://localhost:8443", cfg.Backend.URL)
	req.Equal(2*time.Minute, cfg.Backend.Timeout)
	req.Equal(":8080", cfg.Server.Addr)
	req.Equal([]string{"*"}, cfg.Server.CORSOrigins)
	req.Equal(5, cfg.Server.RateLimitRPS)
	req.Equal(30*time.Second, cfg.Health.Interval)
	req.Equal(3, cfg.Health.FailThreshold)
	req.Equal("info", cfg.Log.Level)
}

func TestLoad_fileAndEnv(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	req.NoError(os.WriteFile(path, []byte(`
backend:
  url: https://detector.example.com:8443
  timeout: 45s
health:
  fail_threshold: 5
log:
  level: debug
`), 0o600))

	t.Setenv("SYNTHSCAN_BACKEND_TIMEOUT", "90s")
	t.Setenv("SYNTHSCAN_SERVER_ADDR", "127.0.0.1:9999")

	cfg, err := Load(viper.New(), path)
	req.NoError(err)
	req.Equal("https://detector.example.com:8443", cfg.Backend.URL)
	req.Equal(90*time.Second, cfg.Backend.Timeout)
	req.Equal("127.0.0.1:9999", cfg.Server.Addr)
	req.Equal(5, cfg.Health.FailThreshold)
	req.Equal("debug", cfg.Log.Level)
}

func TestLoad_missingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		description string
		env         map[string]string
	}{
		{"Should reject a non-URL backend", map[string]string{"SYNTHSCAN_BACKEND_URL": "not a url"}},
		{"Should reject an unknown log level", map[string]string{"SYNTHSCAN_LOG_LEVEL": "chatty"}},
		{"Should reject a zero fail threshold", map[string]string{"SYNTHSCAN_HEALTH_FAIL_THRESHOLD": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv("HOME", t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(viper.New(), "")
			require.Error(t, err)
		})
	}
}

func TestLogConfig_NewLogger(t *testing.T) {
	req := require.New(t)

	logger, err := LogConfig{Level: "warn"}.NewLogger()
	req.NoError(err)
	req.False(logger.Core().Enabled(-1))

	logger, err = LogConfig{Level: "debug", Development: true}.NewLogger()
	req.NoError(err)
	req.True(logger.Core().Enabled(-1))

	_, err = LogConfig{Level: "loud"}.NewLogger()
	req.Error(err)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
