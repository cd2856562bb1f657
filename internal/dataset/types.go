package dataset

import (
	"encoding/json"
	"fmt"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Roles lists every accepted role.
var Roles = []Role{RoleUser, RoleAssistant, RoleSystem}

// Valid reports whether r is one of Roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Sample is one training conversation.
type Sample struct {
	Messages []Message `json:"messages"`
}

// HasRole reports whether any message in s has role r.
func (s Sample) HasRole(r Role) bool {
	for _, m := range s.Messages {
		if m.Role == r {
			return true
		}
	}
	return false
}

// WithSystemMessage returns s with a system message at index 0, unless s
// already contains a system message.
func (s Sample) WithSystemMessage(content string) Sample {
	if s.HasRole(RoleSystem) {
		return s
	}
	msgs := make([]Message, 0, len(s.Messages)+1)
	msgs = append(msgs, Message{Role: RoleSystem, Content: content})
	msgs = append(msgs, s.Messages...)
	return Sample{Messages: msgs}
}

// RawSample is a decoded but unvalidated sample as produced by a model.
type RawSample = map[string]any

// ValidationError explains why a raw sample was rejected.
type ValidationError struct {
	Index  int // message index, -1 for sample-level problems
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return e.Reason
	}
	return fmt.Sprintf("message %d: %s", e.Index, e.Reason)
}

// Validate checks the structure of a raw sample: a "messages" list whose
// entries each carry a role from Roles and string content. A system message
// may appear at any position.
func Validate(raw RawSample) error {
	v, ok := raw["messages"]
	if !ok {
		return &ValidationError{Index: -1, Reason: `missing "messages"`}
	}
	msgs, ok := v.([]any)
	if !ok {
		return &ValidationError{Index: -1, Reason: `"messages" is not a list`}
	}
	for i, m := range msgs {
		obj, ok := m.(map[string]any)
		if !ok {
			return &ValidationError{Index: i, Reason: "not an object"}
		}
		role, hasRole := obj["role"]
		content, hasContent := obj["content"]
		if !hasRole || !hasContent {
			return &ValidationError{Index: i, Reason: "role and content are required"}
		}
		r, ok := role.(string)
		if !ok || !Role(r).Valid() {
			return &ValidationError{Index: i, Reason: fmt.Sprintf("invalid role %v", role)}
		}
		if _, ok := content.(string); !ok {
			return &ValidationError{Index: i, Reason: "content is not a string"}
		}
	}
	return nil
}

// FromRaw validates raw and converts it to a Sample. Keys other than
// "messages" are dropped.
func FromRaw(raw RawSample) (Sample, error) {
	if err := Validate(raw); err != nil {
		return Sample{}, err
	}
	msgs := raw["messages"].([]any)
	s := Sample{Messages: make([]Message, 0, len(msgs))}
	for _, m := range msgs {
		obj := m.(map[string]any)
		s.Messages = append(s.Messages, Message{
			Role:    Role(obj["role"].(string)),
			Content: obj["content"].(string),
		})
	}
	return s, nil
}

// describe renders a raw sample for failure messages.
func describe(raw RawSample) string {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprintf("%v", raw)
	}
	return string(b)
}
