package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Modality identifies the content type of a content block.
type Modality string

const (
	ModalityText  Modality = "TEXT"
	ModalityAudio Modality = "AUDIO"
)

// Role identifies the speaker of a content block.
type Role string

const (
	RoleNone      Role = "NONE"
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
)

// StopReason explains why a content block was closed.
type StopReason string

const (
	StopEndTurn     StopReason = "END_TURN"
	StopInterrupted StopReason = "INTERRUPTED"
)

// generationStageSpeculative marks a provisional assistant transcript that may
// be superseded by a final block.
const generationStageSpeculative = "SPECULATIVE"

// StreamEvent is one inbound event from the agent channel.
type StreamEvent interface {
	StreamEventType() string
}

// ContentStartEvent opens a content block of one modality and role.
type ContentStartEvent struct {
	Modality    Modality
	Role        Role
	Speculative bool
}

func (e ContentStartEvent) StreamEventType() string { return "contentStart" }

// TextOutputEvent carries transcript text for the currently open block.
type TextOutputEvent struct {
	Role    Role
	Content string
}

func (e TextOutputEvent) StreamEventType() string { return "textOutput" }

// AudioOutputEvent carries one base64-encoded PCM16 playback frame.
type AudioOutputEvent struct {
	Content string
}

func (e AudioOutputEvent) StreamEventType() string { return "audioOutput" }

// ContentEndEvent closes the matching content block.
type ContentEndEvent struct {
	Modality   Modality
	StopReason StopReason
}

func (e ContentEndEvent) StreamEventType() string { return "contentEnd" }

// StreamCompleteEvent signals the agent has finished the conversation stream.
type StreamCompleteEvent struct{}

func (e StreamCompleteEvent) StreamEventType() string { return "streamComplete" }

// ErrorEvent surfaces an agent-side error. The session keeps running.
type ErrorEvent struct {
	Message string
}

func (e ErrorEvent) StreamEventType() string { return "error" }

// ConnectEvent is emitted when the channel opens.
type ConnectEvent struct{}

func (e ConnectEvent) StreamEventType() string { return "connect" }

// DisconnectEvent is emitted when the channel closes for any reason.
type DisconnectEvent struct{}

func (e DisconnectEvent) StreamEventType() string { return "disconnect" }

// Location is the best-effort session location report.
type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Accuracy    float64 `json:"accuracy"`
	Timestamp   int64   `json:"timestamp"`
	Unavailable bool    `json:"-"`
}

// DomainInfo describes where the client is running, reported once per connect.
type DomainInfo struct {
	Domain    string `json:"domain"`
	Protocol  string `json:"protocol"`
	Port      string `json:"port"`
	Pathname  string `json:"pathname"`
	Timestamp int64  `json:"timestamp"`
}

type eventEnvelope struct {
	Type string `json:"type"`
}

type contentStartWire struct {
	ContentType      string          `json:"contentType"`
	Role             string          `json:"role"`
	AdditionalFields json.RawMessage `json:"additionalFields,omitempty"`
}

type textOutputWire struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type audioOutputWire struct {
	Content string `json:"content"`
}

type contentEndWire struct {
	ContentType string `json:"contentType"`
	StopReason  string `json:"stopReason,omitempty"`
}

type errorWire struct {
	Message string `json:"message"`
}

// Decode parses one inbound channel frame into a StreamEvent.
// Unknown event types are an error; malformed optional fields inside a known
// event degrade to their zero value instead of failing the frame.
func Decode(data []byte) (StreamEvent, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, fmt.Errorf("event frame missing type")
	}

	switch typ {
	case "contentStart":
		var wire contentStartWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode contentStart: %w", err)
		}
		return ContentStartEvent{
			Modality:    Modality(strings.TrimSpace(wire.ContentType)),
			Role:        Role(strings.TrimSpace(wire.Role)),
			Speculative: isSpeculative(wire.AdditionalFields),
		}, nil
	case "textOutput":
		var wire textOutputWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode textOutput: %w", err)
		}
		return TextOutputEvent{
			Role:    Role(strings.TrimSpace(wire.Role)),
			Content: wire.Content,
		}, nil
	case "audioOutput":
		var wire audioOutputWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode audioOutput: %w", err)
		}
		return AudioOutputEvent{Content: wire.Content}, nil
	case "contentEnd":
		var wire contentEndWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode contentEnd: %w", err)
		}
		return ContentEndEvent{
			Modality:   Modality(strings.TrimSpace(wire.ContentType)),
			StopReason: StopReason(strings.TrimSpace(wire.StopReason)),
		}, nil
	case "streamComplete":
		return StreamCompleteEvent{}, nil
	case "error":
		var wire errorWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode error event: %w", err)
		}
		return ErrorEvent{Message: wire.Message}, nil
	case "connect":
		return ConnectEvent{}, nil
	case "disconnect":
		return DisconnectEvent{}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", typ)
	}
}

// isSpeculative inspects the optional additionalFields payload for a
// generation-stage tag. The agent sends it either as a JSON object or as a
// string containing JSON; anything malformed means "not speculative".
func isSpeculative(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}

	var fields struct {
		GenerationStage string `json:"generationStage"`
	}
	if err := json.Unmarshal(raw, &fields); err == nil && fields.GenerationStage != "" {
		return strings.EqualFold(strings.TrimSpace(fields.GenerationStage), generationStageSpeculative)
	}

	// String-wrapped JSON variant.
	var nested string
	if err := json.Unmarshal(raw, &nested); err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(nested), &fields); err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(fields.GenerationStage), generationStageSpeculative)
}
