package models

import (
	"encoding/json"

	"github.com/grovetools/devsync/errors"
)

// Message is the wire form of a ChangeEvent: one JSON object per text frame.
type Message struct {
	Type     string    `json:"type" jsonschema:"enum=inline,enum=cssRule,enum=drag,enum=resize,description=Kind of change"`
	Selector string    `json:"selector" jsonschema:"description=CSS selector of the changed element or rule"`
	Style    string    `json:"style,omitempty" jsonschema:"description=Inline style text or rule body (inline and cssRule)"`
	Position *Position `json:"position,omitempty" jsonschema:"description=Final position (drag)"`
	Size     *Size     `json:"size,omitempty" jsonschema:"description=Final size (resize)"`
	FilePath string    `json:"filePath,omitempty" jsonschema:"description=URL of the page the change was captured on"`
}

// ToMessage converts an event into its wire form.
func (e ChangeEvent) ToMessage() Message {
	return Message{
		Type:     string(e.Kind),
		Selector: e.Selector,
		Style:    e.Style,
		Position: e.Position,
		Size:     e.Size,
		FilePath: e.TargetFile,
	}
}

// Event converts a decoded wire message into a ChangeEvent.
func (m Message) Event() (ChangeEvent, error) {
	kind, err := ParseKind(m.Type)
	if err != nil {
		return ChangeEvent{}, errors.MalformedMessage(err)
	}
	return ChangeEvent{
		Kind:       kind,
		Selector:   m.Selector,
		Style:      m.Style,
		Position:   m.Position,
		Size:       m.Size,
		TargetFile: m.FilePath,
	}, nil
}

// Encode serializes an event as a single wire message.
func Encode(e ChangeEvent) ([]byte, error) {
	return json.Marshal(e.ToMessage())
}

// Decode parses and schema-validates one wire message. Every failure is
// reported as MALFORMED_MESSAGE.
func Decode(data []byte) (ChangeEvent, error) {
	v, err := DefaultValidator()
	if err != nil {
		return ChangeEvent{}, errors.Wrap(err, errors.ErrCodeInternal, "wire schema unavailable")
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return ChangeEvent{}, errors.MalformedMessage(err)
	}
	if err := v.Validate(raw); err != nil {
		return ChangeEvent{}, errors.MalformedMessage(err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return ChangeEvent{}, errors.MalformedMessage(err)
	}
	return msg.Event()
}
