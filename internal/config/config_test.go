package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helper function tests
// ---------------------------------------------------------------------------

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string // nil = don't set; pointer to distinguish "" from unset
		fallback string
		want     string
	}{
		{name: "returns fallback when unset", key: "GW_TEST_GETENV_UNSET", setVal: nil, fallback: "default", want: "default"},
		{name: "returns env value when set", key: "GW_TEST_GETENV_SET", setVal: strPtr("custom"), fallback: "default", want: "custom"},
		{name: "returns fallback when empty string", key: "GW_TEST_GETENV_EMPTY", setVal: strPtr(""), fallback: "default", want: "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got := getEnv(tc.key, tc.fallback)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback int
		want     int
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "GW_TEST_INT_UNSET", setVal: nil, fallback: 42, want: 42},
		{name: "parses valid int", key: "GW_TEST_INT_VALID", setVal: strPtr("8080"), fallback: 0, want: 8080},
		{name: "returns fallback for empty string", key: "GW_TEST_INT_EMPTY", setVal: strPtr(""), fallback: 25, want: 25},
		{name: "errors on non-numeric", key: "GW_TEST_INT_NAN", setVal: strPtr("abc"), fallback: 0, wantErr: true},
		{name: "errors on float", key: "GW_TEST_INT_FLOAT", setVal: strPtr("3.14"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvInt(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("GW_TEST_FLOAT_VALID", "2.5")

	got, err := getEnvFloat("GW_TEST_FLOAT_VALID", 0)
	require.NoError(t, err)
	assert.InEpsilon(t, 2.5, got, 1e-9)

	got, err = getEnvFloat("GW_TEST_FLOAT_UNSET", 5)
	require.NoError(t, err)
	assert.InEpsilon(t, 5.0, got, 1e-9)

	t.Setenv("GW_TEST_FLOAT_NAN", "fast")
	_, err = getEnvFloat("GW_TEST_FLOAT_NAN", 0)
	assert.Error(t, err)
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback time.Duration
		want     time.Duration
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "GW_TEST_DUR_UNSET", setVal: nil, fallback: time.Minute, want: time.Minute},
		{name: "parses duration", key: "GW_TEST_DUR_VALID", setVal: strPtr("90s"), fallback: 0, want: 90 * time.Second},
		{name: "errors on bare number", key: "GW_TEST_DUR_BARE", setVal: strPtr("30"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvDuration(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("GW_TEST_LIST", "kerala, tamilnadu ,,goa")
	assert.Equal(t, []string{"kerala", "tamilnadu", "goa"}, getEnvList("GW_TEST_LIST", nil))

	assert.Equal(t, []string{"x"}, getEnvList("GW_TEST_LIST_UNSET", []string{"x"}))
}

// ---------------------------------------------------------------------------
// Load tests
// ---------------------------------------------------------------------------

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GW_REGISTRY_URL", "https://registry.example.com")
	t.Setenv("GW_REGISTRY_API_KEY", "service-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Tenant.ConfigTTL)
	assert.Equal(t, 1000, cfg.Tenant.DefaultRateLimit)
	assert.Equal(t, "production", cfg.Flags.Environment)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Admin.Token)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing registry url", env: map[string]string{"GW_REGISTRY_URL": "", "GW_REGISTRY_API_KEY": "k"}},
		{name: "invalid registry url", env: map[string]string{"GW_REGISTRY_URL": "not-a-url", "GW_REGISTRY_API_KEY": "k"}},
		{name: "trailing slash", env: map[string]string{"GW_REGISTRY_URL": "https://r.example.com/", "GW_REGISTRY_API_KEY": "k"}},
		{name: "missing api key", env: map[string]string{"GW_REGISTRY_URL": "https://r.example.com", "GW_REGISTRY_API_KEY": ""}},
		{name: "zero config ttl", env: map[string]string{"GW_REGISTRY_URL": "https://r.example.com", "GW_REGISTRY_API_KEY": "k", "GW_TENANT_CONFIG_TTL": "-5m"}},
		{name: "zero rate limit", env: map[string]string{"GW_REGISTRY_URL": "https://r.example.com", "GW_REGISTRY_API_KEY": "k", "GW_DEFAULT_RATE_LIMIT": "0"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func strPtr(s string) *string { return &s }
