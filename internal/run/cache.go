package run

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"sketchtex/internal/pipeline"
)

// ResultCache remembers terminal artifacts per input image. With a
// deterministic capability layer, re-running the same image yields the
// same terminal artifact, so a hit short-circuits straight to Done.
type ResultCache struct {
	lru *lru.Cache[string, pipeline.Artifact]
}

func NewResultCache(size int) (*ResultCache, error) {
	if size <= 0 {
		size = 64
	}
	c, err := lru.New[string, pipeline.Artifact](size)
	if err != nil {
		return nil, err
	}
	return &ResultCache{lru: c}, nil
}

// Key derives the cache key from the raw image bytes and the capability
// configuration that shaped the result.
func (c *ResultCache) Key(rawImage []byte, model string, effort string) string {
	h := sha256.New()
	h.Write(rawImage)
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(effort))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *ResultCache) Get(key string) (pipeline.Artifact, bool) {
	return c.lru.Get(key)
}

func (c *ResultCache) Add(key string, artifact pipeline.Artifact) {
	c.lru.Add(key, artifact)
}
