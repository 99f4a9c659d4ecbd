package disk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/diogoX451/mentor/internal/store"
	"github.com/diogoX451/mentor/pkg/types"
)

// DiskStore persiste snapshots de sessão e entradas de cache como JSON
// num diretório local.
//
// Ficheiros:
// state_{session_id}.json -> types.ContextSnapshot
// cache_{fingerprint}.json -> store.CacheEntry
//
// Erros de I/O e ficheiros corrompidos nunca chegam ao caller: viram
// miss/ausente, com log. Ficheiros corrompidos são apagados.
type DiskStore struct {
	dir    string
	logger *slog.Logger
}

var _ store.StateStore = (*DiskStore)(nil)
var _ store.CacheStore = (*DiskStore)(nil)

type Config struct {
	Dir string
}

func New(cfg Config, logger *slog.Logger) (*DiskStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		cfg.Dir = "cache"
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &DiskStore{dir: cfg.Dir, logger: logger}, nil
}

func (d *DiskStore) statePath(sessionID types.SessionID) string {
	return filepath.Join(d.dir, fmt.Sprintf("state_%s.json", sessionID))
}

func (d *DiskStore) cachePath(fingerprint string) string {
	return filepath.Join(d.dir, fmt.Sprintf("cache_%s.json", fingerprint))
}

// writeFile grava via ficheiro temporário + rename para nunca deixar
// um JSON meio escrito no lugar
func (d *DiskStore) writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (d *DiskStore) SaveContext(_ context.Context, snap *types.ContextSnapshot) error {
	snap.SchemaVersion = store.SchemaVersion
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	if err := d.writeFile(d.statePath(snap.SessionID), data); err != nil {
		return fmt.Errorf("write context: %w", err)
	}
	return nil
}

func (d *DiskStore) LoadContext(_ context.Context, sessionID types.SessionID) (*types.ContextSnapshot, error) {
	path := d.statePath(sessionID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		d.logger.Error("read state file failed",
			slog.String("session", string(sessionID)),
			slog.String("error", err.Error()))
		return nil, nil
	}

	var snap types.ContextSnapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.SchemaVersion != store.SchemaVersion {
		// corrompido ou versão antiga: apaga e trata como ausente
		d.logger.Warn("discarding corrupted state file",
			slog.String("session", string(sessionID)))
		_ = os.Remove(path)
		return nil, nil
	}
	return &snap, nil
}

func (d *DiskStore) DeleteContext(_ context.Context, sessionID types.SessionID) error {
	err := os.Remove(d.statePath(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *DiskStore) SaveEntry(_ context.Context, entry *store.CacheEntry) error {
	entry.SchemaVersion = store.SchemaVersion
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := d.writeFile(d.cachePath(entry.Fingerprint), data); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func (d *DiskStore) LoadEntry(_ context.Context, fingerprint string) (*store.CacheEntry, error) {
	path := d.cachePath(fingerprint)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		d.logger.Error("read cache file failed",
			slog.String("fingerprint", fingerprint),
			slog.String("error", err.Error()))
		return nil, nil
	}

	var entry store.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.SchemaVersion != store.SchemaVersion {
		d.logger.Warn("discarding corrupted cache file",
			slog.String("fingerprint", fingerprint))
		_ = os.Remove(path)
		return nil, nil
	}
	return &entry, nil
}

func (d *DiskStore) DeleteEntry(_ context.Context, fingerprint string) error {
	err := os.Remove(d.cachePath(fingerprint))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *DiskStore) SweepExpired(_ context.Context, now time.Time) (int, error) {
	matches, err := filepath.Glob(filepath.Join(d.dir, "cache_*.json"))
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry store.CacheEntry
		if err := json.Unmarshal(data, &entry); err != nil || entry.SchemaVersion != store.SchemaVersion {
			// ficheiro corrompido também é removido
			_ = os.Remove(path)
			swept++
			continue
		}
		if entry.Expired(now) {
			_ = os.Remove(path)
			swept++
		}
	}
	return swept, nil
}

func (d *DiskStore) CountEntries(_ context.Context) int {
	matches, err := filepath.Glob(filepath.Join(d.dir, "cache_*.json"))
	if err != nil {
		return 0
	}
	return len(matches)
}
