package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadEnv_LoadsExistingFilesOnly(t *testing.T) {
	tmp := t.TempDir()
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "BOOKINGS_ADMIN_TEST_ENV_LOAD=ok\n")

	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(tmp))

	_ = os.Unsetenv("BOOKINGS_ADMIN_TEST_ENV_LOAD")

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "ok", os.Getenv("BOOKINGS_ADMIN_TEST_ENV_LOAD"))
}

func TestLoadEnv_NoFiles(t *testing.T) {
	tmp := t.TempDir()
	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(tmp))

	n, err := LoadEnv([]string{".env"})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestConfiguration_ValidateBackend(t *testing.T) {
	cases := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "trailing slash trimmed", url: "https://admin.example.com/", want: "https://admin.example.com"},
		{name: "relative rejected", url: "/api", wantErr: true},
		{name: "ftp rejected", url: "ftp://example.com", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Configuration{Backend: BackendOptions{URL: tc.url}, Query: QueryOptions{Debounce: 300 * time.Millisecond}}
			err := c.validateBackend()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, c.Backend.URL)
		})
	}
}

func TestConfiguration_Origins(t *testing.T) {
	c := &Configuration{AllowedOrigins: "http://a.test, http://b.test\nhttp://c.test"}
	require.Equal(t, []string{"http://a.test", "http://b.test", "http://c.test"}, c.Origins())
}

func TestRateLimitOptions_Validate(t *testing.T) {
	require.NoError(t, (&RateLimitOptions{GlobalRPS: 10}).Validate())
	require.Error(t, (&RateLimitOptions{GlobalRPS: -1}).Validate())
	require.Error(t, (&RateLimitOptions{GlobalRPS: 2000000}).Validate())
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
