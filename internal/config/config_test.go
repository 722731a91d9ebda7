package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves the test into an empty directory so no stray .env is picked up.
func chdirTemp(t *testing.T) {
	t.Helper()

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(originalWD) })
}

func TestLoadClient(t *testing.T) {
	t.Run("uses defaults when nothing is set", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("AUTHFLOW_API_URL", "")
		t.Setenv("AUTHFLOW_HTTP_TIMEOUT", "")

		cfg, err := LoadClient()
		require.NoError(t, err)

		assert.Equal(t, DefaultAPIURL, cfg.APIURL)
		assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
		assert.Equal(t, DefaultBridgeAddr, cfg.BridgeAddr)
		assert.Equal(t, "development", cfg.Env)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("AUTHFLOW_API_URL", "https://api.example.com/")
		t.Setenv("AUTHFLOW_HTTP_TIMEOUT", "5s")
		t.Setenv("AUTHFLOW_BRIDGE_ADDR", ":9999")

		cfg, err := LoadClient()
		require.NoError(t, err)

		assert.Equal(t, "https://api.example.com", cfg.APIURL)
		assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
		assert.Equal(t, ":9999", cfg.BridgeAddr)
	})

	t.Run("reads a .env file", func(t *testing.T) {
		chdirTemp(t)
		require.NoError(t, os.WriteFile(".env", []byte("AUTHFLOW_BRIDGE_ADDR=127.0.0.1:7000\n"), 0o644))
		t.Cleanup(func() { _ = os.Unsetenv("AUTHFLOW_BRIDGE_ADDR") })

		cfg, err := LoadClient()
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:7000", cfg.BridgeAddr)
	})

	t.Run("rejects a bad base url", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("AUTHFLOW_API_URL", "localhost:3000")

		_, err := LoadClient()
		assert.Error(t, err)
	})

	t.Run("rejects a bad timeout", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("AUTHFLOW_HTTP_TIMEOUT", "soon")

		_, err := LoadClient()
		assert.ErrorContains(t, err, "AUTHFLOW_HTTP_TIMEOUT")
	})
}

func TestLoadServer(t *testing.T) {
	t.Run("requires AUTH_KEY", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("AUTH_KEY", "")

		_, err := LoadServer()
		assert.ErrorIs(t, err, ErrMissingAuthKey)
	})

	t.Run("uses defaults with only the secret set", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("AUTH_KEY", "secret")
		t.Setenv("DATABASE_URL", "")
		t.Setenv("PORT", "")
		t.Setenv("TOKEN_TTL", "")
		t.Setenv("LOGIN_RATE_PER_MIN", "")

		cfg, err := LoadServer()
		require.NoError(t, err)

		assert.Equal(t, DefaultServerPort, cfg.Port)
		assert.Equal(t, DefaultTokenTTL, cfg.TokenTTL)
		assert.Equal(t, DefaultLoginRatePerMin, cfg.LoginRatePerMin)
		assert.Empty(t, cfg.DatabaseURL)
	})

	t.Run("rejects a non-positive rate", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("AUTH_KEY", "secret")
		t.Setenv("LOGIN_RATE_PER_MIN", "0")

		_, err := LoadServer()
		assert.Error(t, err)
	})
}

func Test_getEnv(t *testing.T) {
	t.Run("returns value if env var is set", func(t *testing.T) {
		t.Setenv("TEST_GETENV_KEY", "my-test-value")
		assert.Equal(t, "my-test-value", getEnv("TEST_GETENV_KEY", "fallback"))
	})

	t.Run("returns fallback if env var is set but empty", func(t *testing.T) {
		t.Setenv("TEST_GETENV_EMPTY_KEY", "")
		assert.Equal(t, "fallback", getEnv("TEST_GETENV_EMPTY_KEY", "fallback"))
	})
}

func TestMaskDBSource(t *testing.T) {
	assert.Equal(t, "postgres://****:****@db:5432/app", MaskDBSource("postgres://u:p@db:5432/app"))
	assert.Equal(t, "invalid-dsn-format", MaskDBSource("nonsense"))
}
