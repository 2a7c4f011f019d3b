package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestUnavailable(t *testing.T) {
	m := Unavailable(errors.New("timeout"))
	if m.Status != MediaUnavailable || m.Error != "timeout" {
		t.Errorf("Unavailable() = %+v", m)
	}
	if m.PosterURL != nil || m.Score != nil || m.Synopsis != nil {
		t.Error("unavailable media should carry no fields")
	}
	if Unavailable(nil).Error != "" {
		t.Error("nil error should leave Error empty")
	}
}

func TestMediaInfo_JSONKeepsNullFields(t *testing.T) {
	score := 8.5
	b, err := json.Marshal(&MediaInfo{Status: MediaOK, Score: &score})
	if err != nil {
		t.Fatal(err)
	}
	out := string(b)
	for _, want := range []string{`"status":"ok"`, `"poster_url":null`, `"score":8.5`, `"synopsis":null`} {
		if !strings.Contains(out, want) {
			t.Errorf("json %s missing %s", out, want)
		}
	}
	if strings.Contains(out, `"error"`) {
		t.Errorf("json %s should omit empty error", out)
	}
}
