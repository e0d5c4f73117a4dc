package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const baseSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "title": {"type": "string"},
    "description": {"type": "string"},
    "ai_details": {
      "type": "object",
      "properties": {
        "provider": {"type": "string"},
        "model": {"type": "string"}
      }
    }
  }
}`

const nextSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "title": {"type": "string", "maxLength": 80},
    "tags": {"type": "array", "default": []},
    "ai_details": {
      "type": "object",
      "properties": {
        "provider": {"type": "string"},
        "model": {"type": "string", "default": "gpt-4o-mini"},
        "response_id": {"type": "string"}
      }
    }
  }
}`

func TestComputeNoPrevious(t *testing.T) {
	cur := mustParse(t, baseSchema)
	d := Compute(nil, cur, DetailField)

	assert.Equal(t, cur.Names(), d.AddedTop)
	assert.Empty(t, d.RemovedTop)
	assert.Empty(t, d.ChangedTop)
	assert.Equal(t, []string{"model", "provider"}, d.AddedDetail)
	assert.Empty(t, d.RemovedDetail)
	assert.Empty(t, d.ChangedDetail)
	assert.True(t, d.HasChanges())
}

func TestComputeClassifiesChanges(t *testing.T) {
	d := Compute(mustParse(t, baseSchema), mustParse(t, nextSchema), DetailField)

	assert.Equal(t, []string{"tags"}, d.AddedTop)
	assert.Equal(t, []string{"description"}, d.RemovedTop)
	// Nested constraint changes count, not just type changes.
	assert.Equal(t, []string{"ai_details", "title"}, d.ChangedTop)

	assert.Equal(t, []string{"response_id"}, d.AddedDetail)
	assert.Empty(t, d.RemovedDetail)
	assert.Equal(t, []string{"model"}, d.ChangedDetail)
}

func TestComputeSymmetry(t *testing.T) {
	a, b := mustParse(t, baseSchema), mustParse(t, nextSchema)
	ab := Compute(a, b, DetailField)
	ba := Compute(b, a, DetailField)

	assert.Equal(t, ab.AddedTop, ba.RemovedTop)
	assert.Equal(t, ab.RemovedTop, ba.AddedTop)
	assert.Equal(t, ab.ChangedTop, ba.ChangedTop)
	assert.Equal(t, ab.AddedDetail, ba.RemovedDetail)
}

func TestComputeIdentical(t *testing.T) {
	d := Compute(mustParse(t, nextSchema), mustParse(t, nextSchema), DetailField)
	assert.False(t, d.HasChanges())
	assert.Equal(t, []string{"No schema differences detected since the last snapshot."}, d.Summary(DetailField))
}

func TestComputeMissingDetailOnOneSide(t *testing.T) {
	prev := mustParse(t, `{"properties": {"title": {"type": "string"}}}`)
	d := Compute(prev, mustParse(t, baseSchema), DetailField)

	assert.Equal(t, []string{"ai_details", "description"}, d.AddedTop)
	assert.Equal(t, []string{"model", "provider"}, d.AddedDetail)
}

func TestSummaryListsEverySet(t *testing.T) {
	d := Compute(mustParse(t, baseSchema), mustParse(t, nextSchema), DetailField)
	lines := d.Summary(DetailField)

	assert.Len(t, lines, 7)
	assert.Contains(t, lines[1], "tags")
	assert.Contains(t, lines[2], "description")
	assert.Contains(t, lines[6], "model")
}
