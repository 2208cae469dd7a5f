package parser

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
)

// encounterResponse is the top-level shape expected from the AI model.
type encounterResponse struct {
	Encounters *[]domain.RawEncounterCandidate `json:"encounters"`
}

// ParseEncounterResponse decodes the AI output into raw candidates. The payload may be the JSON
// object itself or a JSON string holding the model's text (optionally wrapped in a markdown
// code fence). Field semantics are not checked here.
func ParseEncounterResponse(raw []byte) ([]domain.RawEncounterCandidate, error) {
	body := bytes.TrimSpace(raw)
	if len(body) == 0 {
		return nil, &domain.ParseError{Reason: "empty payload"}
	}

	if body[0] == '"' {
		var text string
		if err := json.Unmarshal(body, &text); err != nil {
			return nil, &domain.ParseError{Reason: "payload is not valid JSON", Err: err}
		}
		body = []byte(stripCodeFence(text))
		if len(body) == 0 {
			return nil, &domain.ParseError{Reason: "empty payload"}
		}
	}

	if body[0] != '{' {
		return nil, &domain.ParseError{Reason: "payload is not a JSON object: " + truncate(string(body), 80)}
	}

	var resp encounterResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.ParseError{Reason: "payload does not match {encounters: [...]}", Err: err}
	}
	if resp.Encounters == nil {
		return nil, &domain.ParseError{Reason: "missing encounters array"}
	}
	return *resp.Encounters, nil
}

// stripCodeFence removes a surrounding ```json ... ``` block if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
