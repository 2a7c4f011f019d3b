package recommend

import (
	"strconv"

	"github.com/hyperjump/osusume/internal/catalog"
	"github.com/hyperjump/osusume/internal/config"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/storage"
)

// Status describes cat and, when cfg is non-nil, its storage footprint and effective settings.
func Status(cat *catalog.Catalog, cfg *config.Config) *models.CatalogStatus {
	st := &models.CatalogStatus{
		CatalogID:     cat.ID(),
		FormatVersion: storage.FormatVersion,
		Normalization: catalog.NormalizationRule,
		Items:         cat.Size(),
		Titles:        cat.Titles().Len(),
		Dimension:     cat.Dimension(),
	}
	if cfg == nil {
		return st
	}
	if n, err := storage.CatalogDiskUsage(cfg.Storage.DatabasePath, cfg.Storage.VectorPath); err == nil {
		st.DiskUsageBytes = n
	}
	st.Config = map[string]string{
		"database_path":     cfg.Storage.DatabasePath,
		"vector_path":       cfg.Storage.VectorPath,
		"watch":             strconv.FormatBool(cfg.Storage.Watch),
		"default_top_n":     strconv.Itoa(cfg.Ranking.DefaultTopN),
		"max_top_n":         strconv.Itoa(cfg.Ranking.MaxTopN),
		"parallelism":       strconv.Itoa(cfg.Ranking.Parallelism),
		"metadata_enabled":  strconv.FormatBool(cfg.Metadata.EnabledOrDefault()),
		"metadata_base_url": cfg.Metadata.BaseURL,
		"suggest_enabled":   strconv.FormatBool(cfg.Suggest.EnabledOrDefault()),
	}
	return st
}
