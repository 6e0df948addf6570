package openseastream

import (
	"encoding/json"
	"fmt"
)

// Phoenix channel control events.
const (
	phxJoin      = "phx_join"
	phxLeave     = "phx_leave"
	phxReply     = "phx_reply"
	phxError     = "phx_error"
	phxClose     = "phx_close"
	phxHeartbeat = "heartbeat"
)

// phoenixTopic is the reserved topic heartbeats are pushed on.
const phoenixTopic = "phoenix"

const phxStatusOK = "ok"

var emptyObject = json.RawMessage(`{}`)

// phxMessage is one frame of the Phoenix V2 wire protocol. On the wire it
// is a five-element JSON array: [join_ref, ref, topic, event, payload].
// Absent refs are null.
type phxMessage struct {
	JoinRef string
	Ref     string
	Topic   string
	Event   string
	Payload json.RawMessage
}

func (m phxMessage) MarshalJSON() ([]byte, error) {
	payload := m.Payload
	if payload == nil {
		payload = emptyObject
	}
	return json.Marshal([]any{refOrNull(m.JoinRef), refOrNull(m.Ref), m.Topic, m.Event, payload})
}

func (m *phxMessage) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 5 {
		return fmt.Errorf("phoenix frame has %d elements, want 5", len(parts))
	}
	if err := unmarshalRef(parts[0], &m.JoinRef); err != nil {
		return fmt.Errorf("join_ref: %w", err)
	}
	if err := unmarshalRef(parts[1], &m.Ref); err != nil {
		return fmt.Errorf("ref: %w", err)
	}
	if err := json.Unmarshal(parts[2], &m.Topic); err != nil {
		return fmt.Errorf("topic: %w", err)
	}
	if err := json.Unmarshal(parts[3], &m.Event); err != nil {
		return fmt.Errorf("event: %w", err)
	}
	m.Payload = parts[4]
	return nil
}

func refOrNull(ref string) any {
	if ref == "" {
		return nil
	}
	return ref
}

// unmarshalRef accepts a string, numeric or null ref. Some servers send
// refs back as numbers.
func unmarshalRef(raw json.RawMessage, dst *string) error {
	if string(raw) == "null" {
		*dst = ""
		return nil
	}
	if err := json.Unmarshal(raw, dst); err == nil {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return err
	}
	*dst = n.String()
	return nil
}

// phxReplyPayload is the body of a phx_reply frame.
type phxReplyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}
