package store

import (
	"context"
	"time"

	"github.com/diogoX451/mentor/pkg/types"
)

// SchemaVersion marca todo documento persistido; ficheiros com versão
// diferente são tratados como corruptos e apagados.
const SchemaVersion = 1

// CacheEntry é a forma persistida de um resultado memoizado
type CacheEntry struct {
	SchemaVersion int           `json:"schema_version"`
	Fingerprint   string        `json:"fingerprint"`
	AgentName     string        `json:"agent_name"`
	Value         types.Data    `json:"value"`
	CreatedAt     time.Time     `json:"created_at"`
	TTL           time.Duration `json:"ttl"`
}

func (e *CacheEntry) Expired(now time.Time) bool {
	return now.After(e.CreatedAt.Add(e.TTL))
}

// StateStore persistência de snapshots de workflow
// Implementado em infra (disco), usado pelo engine
type StateStore interface {
	SaveContext(ctx context.Context, snap *types.ContextSnapshot) error
	// LoadContext devolve (nil, nil) quando não existe snapshot
	LoadContext(ctx context.Context, sessionID types.SessionID) (*types.ContextSnapshot, error)
	DeleteContext(ctx context.Context, sessionID types.SessionID) error
}

// CacheStore é o tier de disco do ResultCache
type CacheStore interface {
	SaveEntry(ctx context.Context, entry *CacheEntry) error
	// LoadEntry devolve (nil, nil) quando não existe ou está corrompido
	LoadEntry(ctx context.Context, fingerprint string) (*CacheEntry, error)
	DeleteEntry(ctx context.Context, fingerprint string) error
	// SweepExpired apaga entradas expiradas e corrompidas; devolve o total
	SweepExpired(ctx context.Context, now time.Time) (int, error)
	CountEntries(ctx context.Context) int
}
