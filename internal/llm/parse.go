package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fitz/trailmap/internal/journey"
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("model returned empty text")

// ParseGeneration decodes a generation answer. Unknown fields, path types and
// malformed steps are rejected.
func ParseGeneration(text string) (*journey.GenerationOutput, error) {
	var out journey.GenerationOutput
	if err := decodeStrict(text, &out); err != nil {
		return nil, fmt.Errorf("parse generation: %w", err)
	}
	if len(out.Steps) == 0 {
		return nil, fmt.Errorf("parse generation: no steps")
	}
	return &out, nil
}

// ParseAdjustment decodes an adjustment answer. Change operations with unknown
// types or statuses are rejected.
func ParseAdjustment(text string) (*journey.AdjustmentProposal, error) {
	var out journey.AdjustmentProposal
	if err := decodeStrict(text, &out); err != nil {
		return nil, fmt.Errorf("parse adjustment: %w", err)
	}
	return &out, nil
}

func decodeStrict(text string, v any) error {
	body := stripFences(text)
	if body == "" {
		return ErrEmptyResponse
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON document")
	}
	return nil
}

// stripFences removes a surrounding markdown code fence, with or without a language tag.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "json")
	}
	if end := strings.LastIndex(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}
