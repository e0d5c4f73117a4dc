package generate

import "encoding/json"

const prompt = "Analyze this image and produce metadata as a single JSON object with these fields: " +
	"title (string, a short human-readable title), " +
	"description (string, one or two sentences describing the image), " +
	"caption (string, suitable for display under the image), " +
	"tags (3-6 short lowercase strings a photographer would organize albums with). " +
	"Tags should be present-tense singular words. " +
	"If you know the location of the photo, add the place, city or country as a tag. " +
	"Respond with JSON only."

// responseSchema constrains the model's answer; the record itself is assembled by Sidecar.
var responseSchema = json.RawMessage(`{
  "type": "object",
  "additionalProperties": false,
  "required": ["title", "description", "caption", "tags"],
  "properties": {
    "title": {"type": "string"},
    "description": {"type": "string"},
    "caption": {"type": "string"},
    "tags": {"type": "array", "items": {"type": "string"}}
  }
}`)
