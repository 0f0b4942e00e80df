// Package reply decodes raw model output into an explicit tagged variant:
// either a structured multi-message reply (comment + openers) or plain text.
package reply

import (
	"encoding/json"
	"strings"
)

// Kind discriminates the reply variants.
type Kind int

const (
	// KindPlain is a verbatim single-message reply.
	KindPlain Kind = iota
	// KindStructured is a comment followed by a list of opener messages.
	KindStructured
)

func (k Kind) String() string {
	if k == KindStructured {
		return "structured"
	}
	return "plain"
}

// Reply is the decoded form of a raw model response.
type Reply struct {
	Kind    Kind
	Text    string   // set for KindPlain
	Comment string   // set for KindStructured
	Openers []string // set for KindStructured
}

// structuredPayload is the wire format the persona prompt asks the model for.
type structuredPayload struct {
	Comment string   `json:"comment"`
	Openers []string `json:"openers"`
}

// Parse decodes raw model output. Text beginning with the JSON object
// delimiter is tried as a structured payload; on any decode failure, or when
// the payload carries neither a comment nor openers, the raw text is returned
// verbatim as a plain reply. Parse never fails.
func Parse(raw string) Reply {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return Reply{Kind: KindPlain, Text: raw}
	}

	var payload structuredPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return Reply{Kind: KindPlain, Text: raw}
	}

	if payload.Comment == "" && len(payload.Openers) == 0 {
		return Reply{Kind: KindPlain, Text: raw}
	}

	return Reply{
		Kind:    KindStructured,
		Comment: payload.Comment,
		Openers: payload.Openers,
	}
}
