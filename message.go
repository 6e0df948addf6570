package openseastream

import (
	"encoding/json"
	"fmt"
)

// StreamEvent is the decoded envelope for one feed message. EventType and
// the concrete type of Payload always agree: both are set from the variant
// matched at decode time.
type StreamEvent struct {
	EventType EventType
	SentAt    string
	Payload   Payload
}

// UnknownEventError reports a discriminator this client has no schema for.
// Informational: log or skip it, the channel and other messages are
// unaffected.
type UnknownEventError struct {
	EventType string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown event type %q", e.EventType)
}

// MalformedPayloadError reports a body that failed to decode against the
// schema registered for its discriminator. It carries the raw body for
// diagnostics and degrades that one message only.
type MalformedPayloadError struct {
	EventType EventType
	Raw       json.RawMessage
	cause     error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload: %v", e.EventType, e.cause)
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.cause
}

// payloadFactories registers one constructor per decodable discriminator.
// EventAll is deliberately absent: the wildcard is subscribe-only, and a
// server echoing it decodes as UnknownEventError.
var payloadFactories = map[EventType]func() Payload{
	EventItemListed:          func() Payload { return &ItemListed{} },
	EventItemSold:            func() Payload { return &ItemSold{} },
	EventItemCancelled:       func() Payload { return &ItemCancelled{} },
	EventItemTransferred:     func() Payload { return &ItemTransferred{} },
	EventItemReceivedOffer:   func() Payload { return &ItemReceivedOffer{} },
	EventItemReceivedBid:     func() Payload { return &ItemReceivedBid{} },
	EventCollectionOffer:     func() Payload { return &CollectionOffer{} },
	EventTraitOffer:          func() Payload { return &TraitOffer{} },
	EventItemMetadataUpdated: func() Payload { return &ItemMetadataUpdated{} },
}

// DecodeMessage interprets one raw channel message against the payload
// schema for the declared event. Unknown fields in the body are ignored;
// missing required fields or a type mismatch yield a MalformedPayloadError
// for that message only. The returned envelope's EventType comes from the
// matched variant, never from the body.
func DecodeMessage(event string, body []byte) (StreamEvent, error) {
	factory, ok := payloadFactories[EventType(event)]
	if !ok {
		return StreamEvent{}, &UnknownEventError{EventType: event}
	}

	var envelope struct {
		SentAt  string          `json:"sent_at"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return StreamEvent{}, &MalformedPayloadError{EventType: EventType(event), Raw: body, cause: err}
	}

	payload := factory()
	if len(envelope.Payload) > 0 {
		if err := json.Unmarshal(envelope.Payload, payload); err != nil {
			return StreamEvent{}, &MalformedPayloadError{EventType: EventType(event), Raw: body, cause: err}
		}
	}
	if err := payload.validate(); err != nil {
		return StreamEvent{}, &MalformedPayloadError{EventType: EventType(event), Raw: body, cause: err}
	}

	return StreamEvent{
		EventType: payload.eventType(),
		SentAt:    envelope.SentAt,
		Payload:   payload,
	}, nil
}
