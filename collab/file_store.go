package collab

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/connectorcore/connectorcore/corekit"
	"github.com/connectorcore/connectorcore/policy"
)

// FileConfigStore is a JSON-file-backed, fsnotify-watched dev
// implementation of ConfigStore: one JSON document per process, keyed by
// integration id, re-read from disk whenever the watcher observes a
// write. Grounded on ariadne's RuntimeConfigManager/HotReloadSystem
// pairing (watcher goroutine + mutex-guarded cached struct), generalised
// from one business-policy document to a per-integration map.
type FileConfigStore struct {
	path   string
	mu     sync.RWMutex
	data   map[corekit.IntegrationId]map[string]interface{}
	logger corekit.Logger
	watcher *fsnotify.Watcher
}

// NewFileConfigStore loads path (starting with no configs if the file is
// absent; nothing is written until SetConfig) and starts watching it for
// out-of-band edits.
func NewFileConfigStore(path string, logger corekit.Logger) (*FileConfigStore, error) {
	if logger == nil {
		logger = corekit.NoOpLogger{}
	}
	s := &FileConfigStore{path: path, logger: logger, data: map[corekit.IntegrationId]map[string]interface{}{}}
	if err := s.reload(); err != nil {
		return nil, err
	}
	if err := s.watch(); err != nil {
		logger.Warn("config store watch failed, hot-reload disabled", map[string]interface{}{"error": err.Error(), "path": path})
	}
	return s, nil
}

func (s *FileConfigStore) reload() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.data = map[corekit.IntegrationId]map[string]interface{}{}
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}
	var decoded map[corekit.IntegrationId]map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	s.mu.Lock()
	s.data = decoded
	s.mu.Unlock()
	return nil
}

func (s *FileConfigStore) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := s.reload(); err != nil {
						s.logger.Warn("config store reload failed", map[string]interface{}{"error": err.Error()})
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("config store watcher error", map[string]interface{}{"error": err.Error()})
			}
		}
	}()
	return nil
}

// Close stops the file watcher.
func (s *FileConfigStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}

func (s *FileConfigStore) GetConfig(id corekit.IntegrationId) (map[string]interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.data[id]
	if !ok || len(fields) == 0 {
		return nil, false
	}
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out, true
}

func (s *FileConfigStore) SetConfig(id corekit.IntegrationId, fields map[string]interface{}) error {
	s.mu.Lock()
	s.data[id] = fields
	snapshot := make(map[corekit.IntegrationId]map[string]interface{}, len(s.data))
	for k, v := range s.data {
		snapshot[k] = v
	}
	s.mu.Unlock()
	return writeJSONFile(s.path, snapshot)
}

// FileSecretStore is a deliberately insecure, file-backed SecretStore for
// local/dev use only. Production deployments must supply their own
// implementation (OS keyring, Vault, cloud secret manager) satisfying the
// same interface — nothing about SecretStore requires file storage.
type FileSecretStore struct {
	path string
	mu   sync.Mutex
}

// NewFileSecretStore builds a FileSecretStore rooted at path.
func NewFileSecretStore(path string) *FileSecretStore {
	return &FileSecretStore{path: path}
}

func (s *FileSecretStore) load() map[corekit.IntegrationId]map[string]interface{} {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return map[corekit.IntegrationId]map[string]interface{}{}
	}
	var decoded map[corekit.IntegrationId]map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return map[corekit.IntegrationId]map[string]interface{}{}
	}
	return decoded
}

func (s *FileSecretStore) GetSecretConfig(id corekit.IntegrationId) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.load()
	return all[id]
}

// SetSecretConfig deletes the record when fields is empty.
func (s *FileSecretStore) SetSecretConfig(id corekit.IntegrationId, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.load()
	if len(fields) == 0 {
		delete(all, id)
	} else {
		all[id] = fields
	}
	return writeJSONFile(s.path, all)
}

// FilePolicyStore is a JSON-file-backed, fsnotify-watched policy.Store.
type FilePolicyStore struct {
	path    string
	mu      sync.RWMutex
	cached  policy.Config
	hasData bool
	logger  corekit.Logger
	watcher *fsnotify.Watcher
}

// NewFilePolicyStore loads path (an empty document is fine — GetConnectorPolicyConfig
// falls back to normalised defaults above this layer) and watches it.
func NewFilePolicyStore(path string, logger corekit.Logger) (*FilePolicyStore, error) {
	if logger == nil {
		logger = corekit.NoOpLogger{}
	}
	s := &FilePolicyStore{path: path, logger: logger}
	if err := s.reload(); err != nil {
		return nil, err
	}
	if err := s.watch(); err != nil {
		logger.Warn("policy store watch failed, hot-reload disabled", map[string]interface{}{"error": err.Error(), "path": path})
	}
	return s, nil
}

func (s *FilePolicyStore) reload() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var cfg policy.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return err
	}
	s.mu.Lock()
	s.cached = policy.Normalize(cfg)
	s.hasData = true
	s.mu.Unlock()
	return nil
}

func (s *FilePolicyStore) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := s.reload(); err != nil {
						s.logger.Warn("policy store reload failed", map[string]interface{}{"error": err.Error()})
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("policy store watcher error", map[string]interface{}{"error": err.Error()})
			}
		}
	}()
	return nil
}

// Close stops the file watcher.
func (s *FilePolicyStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}

func (s *FilePolicyStore) GetConnectorPolicyConfig() (policy.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasData {
		return policy.Config{}, nil
	}
	return s.cached, nil
}

func (s *FilePolicyStore) SetConnectorPolicyConfig(cfg policy.Config) error {
	normalized := policy.Normalize(cfg)
	s.mu.Lock()
	s.cached = normalized
	s.hasData = true
	s.mu.Unlock()
	return writeJSONFile(s.path, normalized)
}

func writeJSONFile(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
