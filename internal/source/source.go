// Package source builds the monitoring target list from the opencode
// provider configuration file. The list is rebuilt wholesale on every reload;
// callers always see an immutable snapshot.
package source

import (
	"encoding/json"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/stamns/modelwatch/internal/domain"
)

type providerFile struct {
	Provider map[string]json.RawMessage `json:"provider"`
}

type providerEntry struct {
	Name    string `json:"name"`
	Options struct {
		BaseURL string `json:"baseURL"`
		APIKey  string `json:"apiKey"`
	} `json:"options"`
	Models map[string]json.RawMessage `json:"models"`
}

type modelEntry struct {
	Name string `json:"name"`
}

// ParseTargets extracts one target per (provider, model) pair. Providers
// without a usable address or key still yield targets (they get classified
// no_config when probed). Malformed provider or model records are skipped;
// only unparseable top-level JSON is an error.
func ParseTargets(data []byte) ([]domain.Target, error) {
	var file providerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	var targets []domain.Target
	for key, raw := range file.Provider {
		var p providerEntry
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		name := p.Name
		if name == "" {
			name = key
		}
		for modelID, rawModel := range p.Models {
			var m modelEntry
			if err := json.Unmarshal(rawModel, &m); err != nil {
				continue
			}
			modelName := m.Name
			if modelName == "" {
				modelName = modelID
			}
			targets = append(targets, domain.Target{
				ProviderKey:  key,
				ProviderName: name,
				ModelID:      modelID,
				ModelName:    modelName,
				BaseAddress:  p.Options.BaseURL,
				Credential:   p.Options.APIKey,
			})
		}
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].ID() < targets[j].ID() })
	return targets, nil
}

// FileSource serves target snapshots read from a provider config file.
type FileSource struct {
	logger *zap.Logger
	path   string

	mu      sync.RWMutex
	targets []domain.Target
}

func NewFileSource(logger *zap.Logger, path string) *FileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{logger: logger, path: path}
}

// Reload re-reads the file and replaces the target list wholesale. On error
// the previous snapshot stays in effect.
func (f *FileSource) Reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}
	targets, err := ParseTargets(data)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.targets = targets
	f.mu.Unlock()

	f.logger.Info("targets_reloaded",
		zap.String("path", f.path),
		zap.Int("targets", len(targets)),
	)
	return nil
}

// Targets returns the current snapshot. The slice is shared but never
// mutated after a reload publishes it.
func (f *FileSource) Targets() []domain.Target {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.targets
}
