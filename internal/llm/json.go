package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// CleanJSON extracts the outermost JSON object from model output that may be
// wrapped in prose or markdown fences. It returns "" when no valid object is found.
func CleanJSON(raw string) string {
	startIndex := strings.Index(raw, "{")
	if startIndex == -1 {
		return ""
	}

	endIndex := strings.LastIndex(raw, "}")
	if endIndex == -1 || endIndex < startIndex {
		return ""
	}

	potentialJson := raw[startIndex : endIndex+1]
	if json.Valid([]byte(potentialJson)) {
		return potentialJson
	}

	log.Warn().Str("potential_json", potentialJson).Msg("Could not validate potential JSON extracted from LLM response")
	return ""
}

// DecodeJSON cleans raw and unmarshals it into v.
func DecodeJSON(raw string, v interface{}) error {
	cleaned := CleanJSON(raw)
	if cleaned == "" {
		return fmt.Errorf("no JSON object in model output: %w", ErrEmptyResponse)
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return nil
}
