// Package cache is a small file-backed query cache: one JSON file per
// query, keyed by the MD5 of the lower-cased query text.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/athellier/larecherche/agent"
)

type QueryCache struct {
	dir string
}

func New(dir string) (*QueryCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &QueryCache{dir: dir}, nil
}

func (c *QueryCache) key(query string) string {
	sum := md5.Sum([]byte(strings.ToLower(query)))
	return hex.EncodeToString(sum[:])
}

func (c *QueryCache) Get(query string) (agent.Output, bool) {
	data, err := os.ReadFile(filepath.Join(c.dir, c.key(query)+".json"))
	if err != nil {
		return agent.Output{}, false
	}
	var out agent.Output
	if err := json.Unmarshal(data, &out); err != nil {
		return agent.Output{}, false
	}
	return out, true
}

func (c *QueryCache) Set(query string, out agent.Output) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal cached result: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, c.key(query)+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}
