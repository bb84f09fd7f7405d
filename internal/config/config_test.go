package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  dsn: "file::memory:"
forwarding:
  timeout: 4s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 4*time.Second, cfg.Forwarding.Timeout)
	assert.Equal(t, 3, cfg.Forwarding.MaxAttempts)
	assert.Equal(t, EligibilityBroadcast, cfg.Forwarding.Eligibility)
	assert.Equal(t, 50, cfg.Fraud.Thresholds.High)
	assert.Contains(t, cfg.Fraud.BotKeywords, "curl")
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"unknown driver": `
database:
  driver: oracle
  dsn: x
`,
		"missing dsn": `
database:
  driver: mysql
`,
		"bad eligibility": `
database:
  driver: sqlite
  dsn: x
forwarding:
  eligibility: owner
`,
		"kafka without topic": `
database:
  driver: sqlite
  dsn: x
kafka:
  brokers: [localhost:9092]
  topic: ""
`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
