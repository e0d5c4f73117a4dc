package embed

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "/g/sunset_with_meta.jpg", OutputPath("/g/sunset.jpg"))
	assert.Equal(t, "a.b_with_meta.PNG", OutputPath("a.b.PNG"))
}

func TestTags(t *testing.T) {
	values, lists := Tags(map[string]any{
		"title":       "Sunset",
		"description": []any{"red sky", json.Number("2"), nil},
		"caption":     nil,
		"tags":        []any{"beach", " ", "sunset"},
		"reviewed":    false,
	})

	assert.Equal(t, map[string]string{
		"Title":            "Sunset",
		"Headline":         "Sunset",
		"ImageDescription": "red sky, 2",
		"Description":      "red sky, 2",
	}, values)
	assert.Equal(t, map[string][]string{
		"Keywords": {"beach", "sunset"},
		"Subject":  {"beach", "sunset"},
	}, lists)
}

func TestTagsCommaSeparatedKeywords(t *testing.T) {
	_, lists := Tags(map[string]any{"tags": "bw, family,,bird"})
	assert.Equal(t, []string{"bw", "family", "bird"}, lists["Keywords"])
}

func TestTagsEmptyRecord(t *testing.T) {
	values, lists := Tags(nil)
	assert.Empty(t, values)
	assert.Empty(t, lists)
}

func TestIsOutput(t *testing.T) {
	assert.True(t, IsOutput(OutputPath("/g/sunset.jpg")))
	assert.True(t, IsOutput("/g/a_with_meta.PNG"))
	assert.False(t, IsOutput("/g/sunset.jpg"))
	assert.False(t, IsOutput("/g/with_meta_notes.jpg"))
}
