package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/chatexport"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// TestLoad_Defaults verifies a missing file yields usable defaults
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "chatexport.db", cfg.DBPath)
	assert.Equal(t, chatexport.DefaultMessagesPerChat, cfg.Settings.MessagesPerChat)
	assert.Equal(t, chatexport.RowPerMessage, cfg.Settings.RowMode)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "chatexport-messages", cfg.Elastic.Index)
	assert.Empty(t, cfg.Elastic.URL, "the sink is off until a URL is configured")
}

// TestLoad_File verifies YAML values land in the right places
func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
db_path: /tmp/run.db
settings:
  sender_name: Alex Smith
  messages_per_chat: 3
  row_mode: per-chat
  redact_pii: true
browser:
  url: https://chat.test/inbox
  headless: false
elastic:
  url: https://es.test:9200
  username: exporter
  index: chats
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/run.db", cfg.DBPath)
	assert.Equal(t, "Alex Smith", cfg.Settings.SenderName)
	assert.Equal(t, 3, cfg.Settings.MessagesPerChat)
	assert.Equal(t, chatexport.RowPerChat, cfg.Settings.RowMode)
	assert.True(t, cfg.Settings.RedactPII)
	assert.Equal(t, "https://chat.test/inbox", cfg.Browser.URL)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "exporter", cfg.Elastic.Username)
	assert.Equal(t, "chats", cfg.Elastic.Index)
}

// TestLoad_EnvOverride verifies CHATEXPORT_* wins over the file
func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "db_path: from-file.db\n")
	t.Setenv("CHATEXPORT_DB_PATH", "from-env.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env.db", cfg.DBPath)
}

// TestLoad_RejectsBadRowMode verifies validation
func TestLoad_RejectsBadRowMode(t *testing.T) {
	path := writeConfig(t, "settings:\n  row_mode: sideways\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row_mode")
}

// TestLoad_RequiresIndexWithURL verifies the sink cannot be half-configured
func TestLoad_RequiresIndexWithURL(t *testing.T) {
	path := writeConfig(t, "elastic:\n  url: https://es.test:9200\n  index: \"\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elastic.index")
}
