package nodes

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
)

// Cache keeps the latest system and current record per node id. A newer
// record replaces the older one whole.
type Cache struct {
	logger *slog.Logger

	mu       sync.RWMutex
	system   map[string]Node
	current  map[string]Node
	loggedIn bool
}

var _ Updater = (*Cache)(nil)

// NewCache creates an empty Cache.
func NewCache(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		logger:  logger,
		system:  make(map[string]Node),
		current: make(map[string]Node),
	}
}

// UpdateNode implements Updater.
func (c *Cache) UpdateNode(body json.RawMessage, system bool) {
	var node Node
	if err := json.Unmarshal(body, &node); err != nil {
		c.logger.Warn("ignoring undecodable node", "error", err, "system", system)
		return
	}
	if node.NodeID == "" {
		c.logger.Warn("ignoring node without node_id", "system", system)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if system {
		c.system[node.NodeID] = node
	} else {
		c.current[node.NodeID] = node
	}
}

// SetLogin implements Updater.
func (c *Cache) SetLogin(loggedIn bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggedIn = loggedIn
}

// LoggedIn reports the last login state received.
func (c *Cache) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loggedIn
}

// System returns the configured record of a node.
func (c *Cache) System(id string) (Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.system[id]
	return n, ok
}

// Current returns the live record of a node.
func (c *Cache) Current(id string) (Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.current[id]
	return n, ok
}

// IDs returns every known node id, sorted.
func (c *Cache) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{}, len(c.system)+len(c.current))
	for id := range c.system {
		seen[id] = struct{}{}
	}
	for id := range c.current {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
