// Package cli provides output writers for the osusume command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/osusume/internal/importer"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/suggest"
	"github.com/hyperjump/osusume/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one line per result.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// Display placeholders for missing metadata.
const (
	NoImage    = "No Image"
	NoScore    = "Score: N/A"
	NoSynopsis = "No synopsis available."
)

// DefaultSynopsisLength is the rune limit for synopses in text output.
const DefaultSynopsisLength = 250

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text, compact or json)", s)
	}
}

// WriteRecommendations writes a recommendation response to w in the given format.
// synopsisLength <= 0 uses DefaultSynopsisLength.
func WriteRecommendations(w io.Writer, response *models.RecommendResponse, format OutputFormat, synopsisLength int) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%d. %s (%s) %.4f\n", r.Rank, r.Item.Name, r.Item.Genre, r.Score)
		}
		return nil
	default:
		if synopsisLength <= 0 {
			synopsisLength = DefaultSynopsisLength
		}
		writeRecommendationsText(w, response, synopsisLength)
		return nil
	}
}

func writeRecommendationsText(w io.Writer, response *models.RecommendResponse, synopsisLength int) {
	fmt.Fprintf(w, "\nTop %d recommendations for %q in %dms\n\n", len(response.Results), response.Resolved, response.QueryTime)
	for _, r := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "#%d %s | Similarity: %.4f\n", r.Rank, r.Item.Name, r.Score)
		if r.Item.Genre != "" {
			fmt.Fprintf(w, "Genre: %s\n", r.Item.Genre)
		}
		if r.Media != nil && r.Media.Status != models.MediaDisabled {
			writeMedia(w, r.Media, synopsisLength)
		}
		fmt.Fprintln(w)
	}
}

func writeMedia(w io.Writer, m *models.MediaInfo, synopsisLength int) {
	if m.PosterURL != nil {
		fmt.Fprintf(w, "Poster: %s\n", *m.PosterURL)
	} else {
		fmt.Fprintln(w, NoImage)
	}
	if m.Score != nil {
		fmt.Fprintf(w, "Score: %.2f\n", *m.Score)
	} else {
		fmt.Fprintln(w, NoScore)
	}
	if m.Synopsis != nil {
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(*m.Synopsis, synopsisLength))
	} else {
		fmt.Fprintf(w, "\n%s\n", NoSynopsis)
	}
}

// WriteNotFound reports an unknown title and any close catalog titles.
func WriteNotFound(w io.Writer, title string, suggestions []suggest.Suggestion, format OutputFormat) error {
	if format == OutputJSON {
		if suggestions == nil {
			suggestions = []suggest.Suggestion{}
		}
		return writeJSON(w, map[string]interface{}{
			"error":       fmt.Sprintf("title not found: %q", title),
			"suggestions": suggestions,
		})
	}
	fmt.Fprintf(w, "Title not found: %q\n", title)
	if len(suggestions) > 0 {
		names := make([]string, len(suggestions))
		for i, s := range suggestions {
			names[i] = s.Title
		}
		fmt.Fprintf(w, "Did you mean: %s?\n", strings.Join(names, ", "))
	}
	return nil
}

// WriteStatus writes catalog status to w.
func WriteStatus(w io.Writer, st *models.CatalogStatus, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Catalog:        %s\n", st.CatalogID)
	fmt.Fprintf(w, "Format version: %d (%s)\n", st.FormatVersion, st.Normalization)
	fmt.Fprintf(w, "Items:          %d\n", st.Items)
	fmt.Fprintf(w, "Titles:         %d\n", st.Titles)
	fmt.Fprintf(w, "Dimension:      %d\n", st.Dimension)
	if st.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "Disk usage:     %s\n", FormatBytes(st.DiskUsageBytes))
	}
	for _, key := range []string{"database_path", "vector_path", "metadata_enabled", "suggest_enabled"} {
		if v, ok := st.Config[key]; ok {
			fmt.Fprintf(w, "%-16s%s\n", key+":", v)
		}
	}
	return nil
}

// WriteImportResult writes the outcome of an import to w.
func WriteImportResult(w io.Writer, res *importer.Result, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "Imported %d items (%d titles, dimension %d) as catalog %s\n",
		res.Items, res.Titles, res.Dimension, res.CatalogID)
	if len(res.Dropped) > 0 {
		fmt.Fprintf(w, "%d duplicate or blank titles left out of the index\n", len(res.Dropped))
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
