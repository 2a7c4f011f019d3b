package models

// CatalogStatus describes the loaded catalog and the settings serving it.
type CatalogStatus struct {
	CatalogID      string            `json:"catalog_id"`
	FormatVersion  int               `json:"format_version"`
	Normalization  string            `json:"normalization"`
	Items          int               `json:"items"`
	Titles         int               `json:"titles"`
	Dimension      int               `json:"dimension"`
	DiskUsageBytes int64             `json:"disk_usage_bytes,omitempty"`
	Config         map[string]string `json:"config,omitempty"`
}
