package core

import (
	"encoding/json"
	"fmt"
)

// Tag is a taxonomy label such as "tlp:green" or "osint:source-type=\"blog-post\"".
type Tag struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Colour string `json:"colour,omitempty"`
}

// EventTag links a tag directly to an event.
type EventTag struct {
	ID  string `json:"id,omitempty"`
	Tag Tag    `json:"Tag"`
}

// AttributeTag links a tag to an attribute.
type AttributeTag struct {
	ID  string `json:"id,omitempty"`
	Tag Tag    `json:"Tag"`
}

// Attribute is a single indicator on an event or inside an object.
type Attribute struct {
	ID           string         `json:"id,omitempty"`
	UUID         string         `json:"uuid,omitempty"`
	Type         string         `json:"type,omitempty"`
	Category     string         `json:"category,omitempty"`
	Value        string         `json:"value,omitempty"`
	AttributeTag []AttributeTag `json:"AttributeTag,omitempty"`
}

// Object groups attributes under a template (e.g. "file", "domain-ip").
type Object struct {
	ID        string      `json:"id,omitempty"`
	UUID      string      `json:"uuid,omitempty"`
	Name      string      `json:"name,omitempty"`
	Attribute []Attribute `json:"Attribute,omitempty"`
}

// Organisation identifies an organisation; on events it is the creator org (Orgc).
type Organisation struct {
	ID   string `json:"id,omitempty"`
	UUID string `json:"uuid,omitempty"`
	Name string `json:"name,omitempty"`
}

// Event is a threat-intelligence event record. Evaluation never mutates it.
type Event struct {
	ID        string        `json:"id,omitempty"`
	UUID      string        `json:"uuid,omitempty"`
	Info      string        `json:"info,omitempty"`
	Published bool          `json:"published,omitempty"`
	Orgc      *Organisation `json:"Orgc,omitempty"`
	Attribute []Attribute   `json:"Attribute,omitempty"`
	Object    []Object      `json:"Object,omitempty"`
	EventTag  []EventTag    `json:"EventTag,omitempty"`
}

// eventEnvelope covers the wrapped export form where the event body sits under
// "Event" and collections may also appear as siblings of it.
type eventEnvelope struct {
	Event     *Event        `json:"Event"`
	Orgc      *Organisation `json:"Orgc"`
	Attribute []Attribute   `json:"Attribute"`
	Object    []Object      `json:"Object"`
	EventTag  []EventTag    `json:"EventTag"`
}

// DecodeEvent decodes an event from JSON. It accepts a bare event object, the
// {"Event": {...}} export envelope, and envelopes whose collections are
// siblings of the "Event" key. Sibling collections are appended after the
// nested ones.
func DecodeEvent(data []byte) (*Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}

	if env.Event == nil {
		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		return &event, nil
	}

	event := env.Event
	if event.Orgc == nil {
		event.Orgc = env.Orgc
	}
	event.Attribute = append(event.Attribute, env.Attribute...)
	event.Object = append(event.Object, env.Object...)
	event.EventTag = append(event.EventTag, env.EventTag...)
	return event, nil
}
