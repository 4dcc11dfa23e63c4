package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

const sampleConfig = `{
  "$schema": "https://opencode.ai/config.json",
  "provider": {
    "openai": {
      "name": "OpenAI",
      "options": {"baseURL": "https://api.openai.com/v1", "apiKey": "sk-test"},
      "models": {
        "gpt-4o": {"name": "GPT-4o"},
        "gpt-4o-mini": {}
      }
    },
    "local": {
      "options": {"baseURL": "http://localhost:11434/v1"},
      "models": {"llama3": {"name": "Llama 3"}}
    }
  }
}`

func TestParseTargets(t *testing.T) {
	targets, err := ParseTargets([]byte(sampleConfig))
	require.NoError(t, err)
	require.Len(t, targets, 3)

	// sorted by target id
	assert.Equal(t, "local/llama3", targets[0].ID())
	assert.Equal(t, "openai/gpt-4o", targets[1].ID())
	assert.Equal(t, "openai/gpt-4o-mini", targets[2].ID())

	gpt4o := targets[1]
	assert.Equal(t, "OpenAI", gpt4o.ProviderName)
	assert.Equal(t, "GPT-4o", gpt4o.ModelName)
	assert.Equal(t, "https://api.openai.com/v1", gpt4o.BaseAddress)
	assert.Equal(t, "sk-test", gpt4o.Credential)

	// names fall back to keys when absent
	assert.Equal(t, "gpt-4o-mini", targets[2].ModelName)
	assert.Equal(t, "local", targets[0].ProviderName)
	// unconfigured credential still yields a target
	assert.Empty(t, targets[0].Credential)
}

func TestParseTargets_SkipsMalformedEntries(t *testing.T) {
	cfg := `{
  "provider": {
    "broken": 42,
    "half": {
      "name": "Half",
      "options": {"baseURL": "https://half.example"},
      "models": {
        "good": {"name": "Good"},
        "bad": "nope"
      }
    }
  }
}`
	targets, err := ParseTargets([]byte(cfg))
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "half/good", targets[0].ID())
}

func TestParseTargets_TopLevelGarbage(t *testing.T) {
	_, err := ParseTargets([]byte("not json"))
	assert.Error(t, err)
}

func TestParseTargets_NoProviders(t *testing.T) {
	targets, err := ParseTargets([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestFileSource_ReloadReplacesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opencode.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	src := NewFileSource(zap.NewNop(), path)
	assert.Empty(t, src.Targets(), "no snapshot before first reload")

	require.NoError(t, src.Reload())
	require.Len(t, src.Targets(), 3)

	smaller := `{"provider": {"only": {"options": {}, "models": {"m": {}}}}}`
	require.NoError(t, os.WriteFile(path, []byte(smaller), 0o644))
	require.NoError(t, src.Reload())
	targets := src.Targets()
	require.Len(t, targets, 1)
	assert.Equal(t, "only/m", targets[0].ID())
}

func TestFileSource_ReloadKeepsSnapshotOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opencode.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	src := NewFileSource(zap.NewNop(), path)
	require.NoError(t, src.Reload())

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	assert.Error(t, src.Reload())
	assert.Len(t, src.Targets(), 3, "previous snapshot must survive a bad reload")
}
