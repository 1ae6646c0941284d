package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var trailingComma = regexp.MustCompile(`,\s*([\]}])`)

// CleanJSON extracts the JSON payload from a model response. A response that
// is already valid JSON is returned trimmed and otherwise untouched. Fences
// are only stripped when they wrap the payload, so fences quoted inside
// string values survive.
func CleanJSON(content string) string {
	content = strings.TrimSpace(content)
	if json.Valid([]byte(content)) {
		return content
	}

	if strings.HasPrefix(content, "```") {
		// Drop the opening fence line, e.g. ```json.
		if nl := strings.IndexByte(content, '\n'); nl != -1 {
			content = content[nl+1:]
		} else {
			content = strings.TrimPrefix(content, "```")
		}
	} else if i := strings.IndexAny(content, "{["); i > 0 {
		// Leading chatter before the payload.
		content = content[i:]
	}
	content = strings.TrimSpace(content)
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// RepairJSON returns the cleaned payload with trailing commas removed.
func RepairJSON(content string) []byte {
	return []byte(trailingComma.ReplaceAllString(CleanJSON(content), "$1"))
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
