package paper

// Schema returns the JSON Schema for StructuredPaper. It constrains model
// output and validates cached results.
func Schema() map[string]any {
	figure := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"image_path": map[string]any{"type": "string"},
			"caption":    map[string]any{"type": []any{"string", "null"}},
			"type":       map[string]any{"type": "string"},
		},
		"required":             []any{"image_path", "caption", "type"},
		"additionalProperties": false,
	}

	section := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"section_title":   map[string]any{"type": "string"},
			"content_summary": map[string]any{"type": "string"},
			"key_details": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"related_figures": map[string]any{
				"type":  "array",
				"items": figure,
			},
		},
		"required":             []any{"section_title", "content_summary", "key_details", "related_figures"},
		"additionalProperties": false,
	}

	return map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"title":   "StructuredPaper",
		"type":    "object",
		"properties": map[string]any{
			"paper_title":     map[string]any{"type": "string"},
			"overall_summary": map[string]any{"type": "string"},
			"sections": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    section,
			},
		},
		"required":             []any{"paper_title", "overall_summary", "sections"},
		"additionalProperties": false,
	}
}
