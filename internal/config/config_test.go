package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	var (
		addr = "localhost:8080"
		dsn  = "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"
		key  = "c29tZV9zZWNyZXQ="
		orig = []string{"http://localhost:3000"}
	)

	tcases := []struct {
		name        string
		addr        string
		dsn         string
		key         string
		orig        []string
		timeout     time.Duration
		wantTimeout time.Duration
		err         bool
	}{
		{
			name:        "valid config",
			addr:        addr,
			dsn:         dsn,
			key:         key,
			orig:        orig,
			timeout:     2 * time.Second,
			wantTimeout: 2 * time.Second,
		},
		{
			name:        "default store timeout",
			addr:        addr,
			dsn:         dsn,
			key:         key,
			orig:        orig,
			wantTimeout: DefaultStoreTimeout,
		},
		{
			name: "empty address",
			dsn:  dsn,
			key:  key,
			err:  true,
		},
		{
			name: "empty DSN",
			addr: addr,
			key:  key,
			err:  true,
		},
		{
			name: "empty signing key",
			addr: addr,
			dsn:  dsn,
			err:  true,
		},
		{
			name: "invalid signing key",
			addr: addr,
			dsn:  dsn,
			key:  "not base64!",
			err:  true,
		},
		{
			name:    "negative store timeout",
			addr:    addr,
			dsn:     dsn,
			key:     key,
			timeout: -time.Second,
			err:     true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			config, err := NewConfig(tc.addr, tc.dsn, tc.key, tc.orig, tc.timeout)
			if tc.err {
				assert.Error(t, err, "expected error for config: %s", tc.name)
				return
			}
			require.NoError(t, err, "expected no error for config: %s", tc.name)

			assert.Equal(t, tc.addr, config.ServerAddr, "expected server address to match")
			assert.Equal(t, tc.dsn, config.DatabaseDSN, "expected database DSN to match")
			assert.Equal(t, tc.orig, config.AllowedOrigins, "expected allowed origins to match")
			assert.Equal(t, []byte("some_secret"), config.SigningKey)
			assert.Equal(t, tc.wantTimeout, config.StoreTimeout)
		})
	}
}

func TestNewConfigTrimsOrigins(t *testing.T) {
	config, err := NewConfig(":8000", "dsn", "c29tZV9zZWNyZXQ=", []string{" http://a.test ", "", "http://b.test"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, config.AllowedOrigins)
}

func Test_decodeSigningKey(t *testing.T) {
	tcases := []struct {
		name         string
		base64Secret string
		expectedKey  []byte
		expectError  bool
	}{
		{
			name:         "valid base64 secret",
			base64Secret: "c29tZV9zZWNyZXQ=",
			expectedKey:  []byte("some_secret"),
		},
		{
			name:         "invalid base64 secret",
			base64Secret: "invalid_base64",
			expectError:  true,
		},
		{
			name:         "empty base64 secret",
			base64Secret: "",
			expectError:  true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := decodeSigningSecret(tc.base64Secret)
			if tc.expectError {
				assert.Error(t, err, "expected error for base64 secret: %s", tc.base64Secret)
				return
			}
			assert.NoError(t, err, "expected no error for base64 secret: %s", tc.base64Secret)
			assert.Equal(t, tc.expectedKey, key, "expected decoded key to match for base64 secret: %s", tc.base64Secret)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CHATLIVE_TEST_ADDR=:9999\nCHATLIVE_TEST_KEEP=from-file\n"), 0o600))

	t.Setenv("CHATLIVE_TEST_KEEP", "from-env")
	t.Setenv("CHATLIVE_TEST_ADDR", "")
	os.Unsetenv("CHATLIVE_TEST_ADDR")

	require.NoError(t, LoadEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, ":9999", os.Getenv("CHATLIVE_TEST_ADDR"))
	assert.Equal(t, "from-env", os.Getenv("CHATLIVE_TEST_KEEP"), "existing variables win over the file")
}

func TestEnvOr(t *testing.T) {
	t.Setenv("CHATLIVE_TEST_VALUE", "set")
	t.Setenv("CHATLIVE_TEST_TIMEOUT", "3s")
	t.Setenv("CHATLIVE_TEST_BAD_TIMEOUT", "soon")

	assert.Equal(t, "set", EnvOr("CHATLIVE_TEST_VALUE", "def"))
	assert.Equal(t, "def", EnvOr("CHATLIVE_TEST_UNSET", "def"))
	assert.Equal(t, 3*time.Second, EnvDurationOr("CHATLIVE_TEST_TIMEOUT", time.Second))
	assert.Equal(t, time.Second, EnvDurationOr("CHATLIVE_TEST_BAD_TIMEOUT", time.Second))
	assert.Equal(t, time.Second, EnvDurationOr("CHATLIVE_TEST_UNSET", time.Second))
}
