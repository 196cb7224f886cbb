package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores cleaned transcripts in Redis so repeated views of the same
// video do not refetch and reformat.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(videoID string, mathjax bool) string {
	return fmt.Sprintf("transcript:%s:mathjax=%t", videoID, mathjax)
}

// Get returns the cached transcript, or nil on a miss. Redis errors count as
// misses.
func (c *Cache) Get(ctx context.Context, videoID string, mathjax bool) *Transcript {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := c.client.Get(ctx, cacheKey(videoID, mathjax)).Bytes()
	if err != nil {
		return nil
	}
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil
	}
	return &t
}

// Set stores the transcript. Errors are swallowed: caching is an
// optimization, never a requirement.
func (c *Cache) Set(ctx context.Context, t *Transcript) {
	if c == nil || c.client == nil || t == nil {
		return
	}
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	c.client.Set(ctx, cacheKey(t.VideoID, t.MathJaxFormatted), data, c.ttl)
}
