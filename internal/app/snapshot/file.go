package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ikkim/cartsync/internal/app/model"
	"github.com/ikkim/cartsync/pkg/logger"
)

// FileStore keeps one JSON file per namespace under a directory.
// This is the default backend: the host's equivalent of browser
// local storage.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("Failed to create snapshot directory", map[string]interface{}{
			"dir":   dir,
			"error": err.Error(),
		})
	}
	return &FileStore{dir: dir}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Load(key string) []model.LineItem {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read snapshot, starting empty", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return []model.LineItem{}
	}

	var items []model.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		logger.Warn("Corrupt snapshot, starting empty", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return []model.LineItem{}
	}
	if items == nil {
		items = []model.LineItem{}
	}

	logger.Debug("Snapshot loaded", map[string]interface{}{
		"key":   key,
		"count": len(items),
	})
	return items
}

func (s *FileStore) Save(key string, items []model.LineItem) {
	if items == nil {
		items = []model.LineItem{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		logger.Error("Failed to encode snapshot", err, map[string]interface{}{
			"key": key,
		})
		return
	}

	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		logger.Error("Failed to write snapshot", err, map[string]interface{}{
			"key": key,
		})
		return
	}

	logger.Debug("Snapshot saved", map[string]interface{}{
		"key":   key,
		"count": len(items),
	})
}
