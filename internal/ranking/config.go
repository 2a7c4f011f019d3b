package ranking

import "runtime"

// Config controls how similarity scans are split across goroutines.
type Config struct {
	// Parallelism is the maximum number of shards scanned concurrently. 0 means GOMAXPROCS,
	// 1 disables sharding.
	Parallelism int
	// ShardMinItems is the smallest shard worth its own goroutine. Catalogs smaller than
	// two shards are scanned on the calling goroutine.
	ShardMinItems int
}

// DefaultConfig returns the default sharding configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Parallelism <= 0 {
		c.Parallelism = runtime.GOMAXPROCS(0)
	}
	if c.ShardMinItems <= 0 {
		c.ShardMinItems = 4096
	}
}

// shards returns how many shards a catalog of size items is split into.
func (c *Config) shards(size int) int {
	n := size / c.ShardMinItems
	if n > c.Parallelism {
		n = c.Parallelism
	}
	if n < 1 {
		n = 1
	}
	return n
}
