package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/osusume/internal/importer"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/suggest"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func testResponse() *models.RecommendResponse {
	return &models.RecommendResponse{
		Query:     "naruto",
		Resolved:  "Naruto",
		TopN:      2,
		QueryTime: 3,
		Results: []*models.Recommendation{
			{
				Rank: 1, Position: 2, Score: 0.9487,
				Item: &models.Item{Position: 2, Name: "Naruto Shippuden", Genre: "Action"},
				Media: &models.MediaInfo{
					Status:    models.MediaOK,
					PosterURL: strPtr("https://img.example/2.jpg"),
					Score:     floatPtr(8.25),
					Synopsis:  strPtr(strings.Repeat("a", 300)),
				},
			},
			{
				Rank: 2, Position: 3, Score: 0.5,
				Item:  &models.Item{Position: 3, Name: "Boruto", Genre: "Action"},
				Media: models.Unavailable(nil),
			},
		},
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "TEXT": OutputText, "compact": OutputCompact, " json ": OutputJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteRecommendations_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecommendations(&buf, testResponse(), OutputText, 0); err != nil {
		t.Fatalf("WriteRecommendations(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{
		`Top 2 recommendations for "Naruto"`,
		"#1 Naruto Shippuden | Similarity: 0.9487",
		"Poster: https://img.example/2.jpg",
		"Score: 8.25",
		strings.Repeat("a", 250) + "...",
		"#2 Boruto",
		NoImage,
		NoScore,
		NoSynopsis,
	} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
	if strings.Contains(out, strings.Repeat("a", 251)) {
		t.Error("synopsis should be truncated to 250 runes")
	}
}

func TestWriteRecommendations_textWithoutMedia(t *testing.T) {
	resp := testResponse()
	resp.Results[0].Media = nil
	resp.Results[1].Media = &models.MediaInfo{Status: models.MediaDisabled}
	var buf bytes.Buffer
	_ = WriteRecommendations(&buf, resp, OutputText, 10)
	if strings.Contains(buf.String(), NoImage) || strings.Contains(buf.String(), "Poster:") {
		t.Errorf("expected no media lines:\n%s", buf.String())
	}
}

func TestWriteRecommendations_compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecommendations(&buf, testResponse(), OutputCompact, 0); err != nil {
		t.Fatal(err)
	}
	want := "1. Naruto Shippuden (Action) 0.9487\n2. Boruto (Action) 0.5000\n"
	if buf.String() != want {
		t.Errorf("compact output = %q, want %q", buf.String(), want)
	}
}

func TestWriteRecommendations_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecommendations(&buf, testResponse(), OutputJSON, 0); err != nil {
		t.Fatalf("WriteRecommendations(json): %v", err)
	}
	var decoded models.RecommendResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Resolved != "Naruto" || len(decoded.Results) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Results[1].Media.Status != models.MediaUnavailable || decoded.Results[1].Media.PosterURL != nil {
		t.Errorf("decoded media = %+v", decoded.Results[1].Media)
	}
}

func TestWriteNotFound(t *testing.T) {
	var buf bytes.Buffer
	suggestions := []suggest.Suggestion{{Title: "Naruto"}, {Title: "Naruto Shippuden"}}
	_ = WriteNotFound(&buf, "Narto", suggestions, OutputText)
	if !strings.Contains(buf.String(), `Title not found: "Narto"`) || !strings.Contains(buf.String(), "Did you mean: Naruto, Naruto Shippuden?") {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	_ = WriteNotFound(&buf, "x", nil, OutputJSON)
	var out struct {
		Suggestions []suggest.Suggestion `json:"suggestions"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil || out.Suggestions == nil {
		t.Errorf("json output = %s (%v)", buf.String(), err)
	}
}

func TestWriteStatus(t *testing.T) {
	st := &models.CatalogStatus{
		CatalogID: "abc", FormatVersion: 1, Normalization: "trim+casefold",
		Items: 12294, Titles: 12290, Dimension: 46, DiskUsageBytes: 2048,
		Config: map[string]string{"vector_path": "/data/vectors.bin"},
	}
	var buf bytes.Buffer
	_ = WriteStatus(&buf, st, OutputText)
	for _, sub := range []string{"abc", "12294", "12290", "46", "2.0 KiB", "/data/vectors.bin"} {
		if !strings.Contains(buf.String(), sub) {
			t.Errorf("status output missing %q:\n%s", sub, buf.String())
		}
	}
}

func TestWriteImportResult(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteImportResult(&buf, &importer.Result{CatalogID: "c", Items: 3, Titles: 2, Dimension: 4, Dropped: []string{"x"}}, OutputText)
	if !strings.Contains(buf.String(), "Imported 3 items") || !strings.Contains(buf.String(), "1 duplicate") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{0: "0 B", 1023: "1023 B", 1536: "1.5 KiB", 1 << 20: "1.0 MiB"}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}
