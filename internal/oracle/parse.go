package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"telepath/internal/logging"
	"telepath/internal/types"
)

// rawReply mirrors the oracle's loose JSON for question proposals.
type rawReply struct {
	Question   string `json:"question"`
	TopGuesses []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"top_guesses"`
}

// ParseReply classifies a raw oracle completion into the tagged reply type.
// Downstream logic switches on ParsedReply.Kind; there is no optional
// chaining through raw JSON anywhere else.
func ParseReply(raw string) types.ParsedReply {
	payload := extractJSON(raw)
	if payload == "" {
		logging.Get(logging.CategoryOracle).Warn("no JSON object in oracle reply (%d bytes)", len(raw))
		return types.ParsedReply{Kind: types.ReplyMalformed}
	}

	var r rawReply
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		logging.Get(logging.CategoryOracle).Warn("undecodable oracle reply: %v", err)
		return types.ParsedReply{Kind: types.ReplyMalformed}
	}

	question := strings.TrimSpace(r.Question)
	var guesses []types.GuessCandidate
	for _, g := range r.TopGuesses {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			continue
		}
		guesses = append(guesses, types.GuessCandidate{
			Name:       name,
			Confidence: clamp01(g.Confidence),
		})
	}

	if question == "" && len(guesses) == 0 {
		return types.ParsedReply{Kind: types.ReplyEmpty}
	}
	return types.ParsedReply{Kind: types.ReplyValid, Question: question, Guesses: guesses}
}

// ParseTraitProposal decodes a raw extraction completion. An error marks the
// proposal unusable; the extractor then skips the turn's trait.
func ParseTraitProposal(raw string) (types.TraitProposal, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return types.TraitProposal{}, fmt.Errorf("no JSON object in extraction reply")
	}

	var p types.TraitProposal
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return types.TraitProposal{}, fmt.Errorf("undecodable extraction reply: %w", err)
	}
	p.Key = strings.ToLower(strings.TrimSpace(p.Key))
	p.Value = strings.ToLower(strings.TrimSpace(p.Value))
	p.Confidence = clamp01(p.Confidence)
	return p, nil
}

// extractJSON pulls the first balanced JSON object out of a completion,
// tolerating markdown fences and prose around it.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
