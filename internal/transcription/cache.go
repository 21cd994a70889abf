package transcription

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// EngineFactory builds the engine for one model size.
type EngineFactory func(modelSize string) (Engine, error)

// ModelCache lazily builds one Engine per model size and reuses it. The
// first caller for a size pays the construction cost; concurrent callers for
// the same size wait for it instead of building a duplicate.
type ModelCache struct {
	factory EngineFactory
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	once   sync.Once
	engine Engine
	err    error
}

// NewModelCache creates a cache backed by factory.
func NewModelCache(factory EngineFactory, logger *zap.Logger) *ModelCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelCache{
		factory: factory,
		logger:  logger,
		entries: make(map[string]*cacheEntry),
	}
}

// NewWhisperCache returns a cache whose engines are Whisper transcribers.
func NewWhisperCache(opts WhisperOptions, logger *zap.Logger) *ModelCache {
	return NewModelCache(func(modelSize string) (Engine, error) {
		return NewWhisperTranscriber(modelSize, opts, logger)
	}, logger)
}

// Get returns the engine for modelSize, building it on first use. A failed
// build is not cached so the next request retries it.
func (c *ModelCache) Get(modelSize string) (Engine, error) {
	key := strings.TrimSpace(modelSize)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		entry = &cacheEntry{}
		c.entries[key] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		c.logger.Info("loading transcription model", zap.String("model", key))
		entry.engine, entry.err = c.factory(key)
	})

	if entry.err != nil {
		c.mu.Lock()
		if c.entries[key] == entry {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, entry.err
	}
	return entry.engine, nil
}

// Loaded returns how many model sizes are cached or still loading.
func (c *ModelCache) Loaded() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
