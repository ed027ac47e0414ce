package ingest

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// extractYAML renders a YAML upload as a shape summary followed by the
// document normalized through a parse/marshal round trip, so the model
// sees the structure before the content. Input that does not parse as
// YAML degrades to plain text.
func extractYAML(data []byte) (string, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return extractText(data)
	}
	if doc == nil {
		return "", nil
	}

	normalized, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("render yaml: %w", err)
	}
	return describeYAML(doc) + "\n\n" + string(normalized), nil
}

func describeYAML(doc interface{}) string {
	switch v := doc.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("YAML mapping with %d top-level keys: %s", len(keys), strings.Join(keys, ", "))
	case []interface{}:
		return fmt.Sprintf("YAML sequence with %d items", len(v))
	default:
		return "YAML scalar document"
	}
}
