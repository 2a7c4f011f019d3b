package recommend

import (
	"testing"

	"github.com/hyperjump/osusume/internal/config"
)

func TestStatus(t *testing.T) {
	cat := testCatalog(t)
	st := Status(cat, nil)
	if st.CatalogID != "test" || st.Items != len(testNames) || st.Titles != len(testNames) || st.Dimension != 3 {
		t.Errorf("status = %+v", st)
	}
	if st.Normalization != "trim+casefold" || st.FormatVersion != 1 {
		t.Errorf("contract = %s v%d", st.Normalization, st.FormatVersion)
	}
	if st.Config != nil {
		t.Error("Expected no config section without config")
	}

	var cfg config.Config
	config.ApplyDefaults(&cfg)
	cfg.Storage.DatabasePath = t.TempDir() + "/missing.db"
	st = Status(cat, &cfg)
	if st.Config["default_top_n"] != "5" || st.Config["metadata_enabled"] != "true" {
		t.Errorf("config = %v", st.Config)
	}
}
