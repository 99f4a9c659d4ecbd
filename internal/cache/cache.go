package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/diogoX451/mentor/internal/store"
	"github.com/diogoX451/mentor/pkg/types"
)

// fpSchemaVersion entra no conteúdo do fingerprint: mudar a
// normalização exige subir a versão para que entradas antigas façam
// miss limpo em vez de colidir.
const fpSchemaVersion = "v1"

// ResultCache memoiza resultados de agente em dois tiers: memória e
// disco. Hits de disco são promovidos para memória. Nenhum valor
// expirado é devolvido; get/set concorrentes na mesma chave são
// last-write-wins (os valores são resultados idempotentes de LLM, não
// estado autoritativo).
type ResultCache struct {
	mu         sync.Mutex
	memory     map[string]*store.CacheEntry
	disk       store.CacheStore
	defaultTTL time.Duration
	hits       int64
	misses     int64
	now        func() time.Time
	logger     *slog.Logger
}

func New(disk store.CacheStore, defaultTTL time.Duration, logger *slog.Logger) *ResultCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultCache{
		memory:     make(map[string]*store.CacheEntry),
		disk:       disk,
		defaultTTL: defaultTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// Fingerprint gera o hash determinístico de (agente, request).
// Request JSON é normalizado (chaves ordenadas) antes do hash; bytes
// não-JSON entram como estão.
func Fingerprint(agentName string, request types.Data) string {
	normalized := request
	if gjson.ValidBytes(request) {
		var v any
		if err := json.Unmarshal(request, &v); err == nil {
			if canon, err := json.Marshal(v); err == nil {
				normalized = canon
			}
		}
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|", fpSchemaVersion, agentName)
	h.Write(normalized)
	return hex.EncodeToString(h.Sum(nil))
}

// Get devolve o valor memoizado ou (nil, false). Entradas expiradas
// são tratadas como miss e removidas dos dois tiers.
func (c *ResultCache) Get(ctx context.Context, agentName string, request types.Data) (types.Data, bool) {
	fp := Fingerprint(agentName, request)
	now := c.now()

	c.mu.Lock()
	if entry, ok := c.memory[fp]; ok {
		if !entry.Expired(now) {
			c.hits++
			value := entry.Value
			c.mu.Unlock()
			c.logger.Debug("cache hit (memory)",
				slog.String("agent", agentName),
				slog.String("fingerprint", fp[:8]))
			return value, true
		}
		delete(c.memory, fp)
	}
	c.mu.Unlock()

	// tier de disco, fora do lock
	entry, err := c.disk.LoadEntry(ctx, fp)
	if err != nil || entry == nil {
		c.recordMiss()
		return nil, false
	}
	if entry.Expired(now) {
		_ = c.disk.DeleteEntry(ctx, fp)
		c.recordMiss()
		return nil, false
	}

	// promove para memória
	c.mu.Lock()
	c.memory[fp] = entry
	c.hits++
	c.mu.Unlock()

	c.logger.Debug("cache hit (disk)",
		slog.String("agent", agentName),
		slog.String("fingerprint", fp[:8]))
	return entry.Value, true
}

func (c *ResultCache) recordMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}

// Set grava nos dois tiers. ttl <= 0 usa o default.
func (c *ResultCache) Set(ctx context.Context, agentName string, request types.Data, value types.Data, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	fp := Fingerprint(agentName, request)

	entry := &store.CacheEntry{
		Fingerprint: fp,
		AgentName:   agentName,
		Value:       value,
		CreatedAt:   c.now(),
		TTL:         ttl,
	}

	c.mu.Lock()
	c.memory[fp] = entry
	c.mu.Unlock()

	if err := c.disk.SaveEntry(ctx, entry); err != nil {
		// falha de persistência nunca chega ao caller
		c.logger.Error("cache disk write failed",
			slog.String("agent", agentName),
			slog.String("error", err.Error()))
	}
}

// ClearExpired varre os dois tiers e devolve o total removido
func (c *ResultCache) ClearExpired(ctx context.Context) int {
	now := c.now()
	cleared := 0

	c.mu.Lock()
	for fp, entry := range c.memory {
		if entry.Expired(now) {
			delete(c.memory, fp)
			cleared++
		}
	}
	c.mu.Unlock()

	swept, err := c.disk.SweepExpired(ctx, now)
	if err != nil {
		c.logger.Error("cache sweep failed", slog.String("error", err.Error()))
	}
	cleared += swept

	if cleared > 0 {
		c.logger.Info("expired cache entries cleared", slog.Int("count", cleared))
	}
	return cleared
}

func (c *ResultCache) Stats(ctx context.Context) types.CacheStats {
	c.mu.Lock()
	hits, misses := c.hits, c.misses
	memEntries := len(c.memory)
	c.mu.Unlock()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return types.CacheStats{
		HitCount:      hits,
		MissCount:     misses,
		HitRate:       hitRate,
		MemoryEntries: memEntries,
		DiskEntries:   c.disk.CountEntries(ctx),
	}
}
