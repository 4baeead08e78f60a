package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FullDocument(t *testing.T) {
	cfg, err := Parse([]byte(`
retry:
  timeout: 10s
  interval: 250ms
session_wait:
  timeout: 3s
  interval: 50ms
artifacts:
  root_template: "{artifacts-root}/{run-id}/{test-name}"
variables:
  artifacts-root: /tmp/out
  env: staging
culture: de-DE
overrides:
  - match: "Checkout/*"
    retry:
      timeout: 1s
      interval: 100ms
    variables:
      flow: checkout
  - match: "*Smoke*"
    culture: en-GB
`))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Retry.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Interval)
	assert.Equal(t, 3*time.Second, cfg.SessionWait.Timeout)
	assert.Equal(t, 50*time.Millisecond, cfg.SessionWait.Interval)
	assert.Equal(t, "{artifacts-root}/{run-id}/{test-name}", cfg.Artifacts.RootTemplate)
	assert.Equal(t, "/tmp/out", cfg.Variables["artifacts-root"])
	assert.Equal(t, "de-DE", cfg.Culture)

	require.Len(t, cfg.Overrides, 2)
	assert.Equal(t, "Checkout/*", cfg.Overrides[0].Match)
	require.NotNil(t, cfg.Overrides[0].Retry)
	assert.Equal(t, time.Second, cfg.Overrides[0].Retry.Timeout)
	assert.Equal(t, "en-GB", cfg.Overrides[1].Culture)
}

func TestParse_UnsetFieldsInheritDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
retry:
  timeout: 8s
`))
	require.NoError(t, err)

	assert.Equal(t, 8*time.Second, cfg.Retry.Timeout)
	assert.Equal(t, DefaultRetryInterval, cfg.Retry.Interval)
	assert.Equal(t, DefaultSessionWaitTimeout, cfg.SessionWait.Timeout)
	assert.Equal(t, DefaultArtifactsTemplate, cfg.Artifacts.RootTemplate)
	assert.Equal(t, DefaultCulture, cfg.Culture)
	assert.NotNil(t, cfg.Variables)
}

func TestParse_InvalidDuration(t *testing.T) {
	_, err := Parse([]byte("retry:\n  timeout: banana\n"))
	assert.ErrorContains(t, err, "invalid duration")
}

func TestParse_InvalidOverridePattern(t *testing.T) {
	_, err := Parse([]byte("overrides:\n  - match: \"[oops\"\n"))
	assert.ErrorContains(t, err, "invalid override pattern")
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("retry: [not a map"))
	assert.ErrorContains(t, err, "failed to decode config")
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("culture: sv-SE\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sv-SE", cfg.Culture)
	assert.Equal(t, DefaultRetryTimeout, cfg.Retry.Timeout)
}
