package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/osusume/data/catalog.db"
	}
	if cfg.Storage.VectorPath == "" {
		cfg.Storage.VectorPath = "/usr/local/var/osusume/data/vectors.bin"
	}
	if cfg.Ranking.DefaultTopN == 0 {
		cfg.Ranking.DefaultTopN = 5
	}
	if cfg.Ranking.MaxTopN == 0 {
		cfg.Ranking.MaxTopN = 100
	}
	if cfg.Ranking.ShardMinItems == 0 {
		cfg.Ranking.ShardMinItems = 4096
	}
	if cfg.Metadata.BaseURL == "" {
		cfg.Metadata.BaseURL = "https://api.jikan.moe/v4"
	}
	if cfg.Metadata.TimeoutSeconds == 0 {
		cfg.Metadata.TimeoutSeconds = 10
	}
	if cfg.Metadata.RequestsPerSecond == 0 {
		// Jikan allows 3 requests per second
		cfg.Metadata.RequestsPerSecond = 3
	}
	if cfg.Metadata.Burst == 0 {
		cfg.Metadata.Burst = 1
	}
	if cfg.Metadata.CacheSize == 0 {
		cfg.Metadata.CacheSize = 1024
	}
	if cfg.Metadata.Concurrency == 0 {
		cfg.Metadata.Concurrency = 3
	}
	if cfg.Metadata.SynopsisLength == 0 {
		cfg.Metadata.SynopsisLength = 250
	}
	if cfg.Suggest.MaxSuggestions == 0 {
		cfg.Suggest.MaxSuggestions = 5
	}
	if cfg.Suggest.Fuzziness == 0 {
		cfg.Suggest.Fuzziness = 2
	}
}
