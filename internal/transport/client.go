package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-client/internal/observability"
	"github.com/lexiqai/voice-client/internal/protocol"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second

	// eventQueueSize bounds inbound delivery. Audio frames dominate the
	// inbound volume; 256 events is roughly 8 seconds of agent audio.
	eventQueueSize = 256
)

// Client is the agent channel: a websocket carrying JSON event frames in both
// directions. Channel lifecycle is surfaced as synthetic connect/disconnect
// events on the same stream as protocol events, so the session router sees a
// single ordered event source.
type Client struct {
	url    string
	logger zerolog.Logger

	mu   sync.RWMutex
	conn *websocket.Conn

	// writeMu serializes writers; gorilla allows one concurrent writer.
	writeMu sync.Mutex

	events    chan protocol.StreamEvent
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a client for the given agent URL. Call Dial to connect.
func NewClient(agentURL string, logger zerolog.Logger) *Client {
	return &Client{
		url:    agentURL,
		logger: logger.With().Str("component", "transport").Logger(),
		events: make(chan protocol.StreamEvent, eventQueueSize),
		done:   make(chan struct{}),
	}
}

// Dial opens the channel and starts the read loop. A connect event is
// delivered before any protocol event.
func (c *Client) Dial(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial agent channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info().Str("url", c.url).Msg("Agent channel connected")
	c.deliver(protocol.ConnectEvent{})

	go c.readLoop(conn)
	return nil
}

// Events returns the inbound event stream. The channel stays open for the
// client's lifetime; a disconnect event marks the end of a connection.
func (c *Client) Events() <-chan protocol.StreamEvent {
	return c.events
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.deliver(protocol.DisconnectEvent{})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("Agent channel read error")
			}
			return
		}

		event, err := protocol.Decode(message)
		if err != nil {
			// Per-frame failure, not fatal to the channel.
			c.logger.Warn().Err(err).Msg("Dropping undecodable event frame")
			observability.RecordFrameDropped("decode_error")
			continue
		}
		observability.RecordEventReceived(event.StreamEventType())
		c.deliver(event)
	}
}

// deliver queues an event, dropping it if the consumer has stalled past the
// queue bound. Stalling the read loop would stall the whole channel.
func (c *Client) deliver(event protocol.StreamEvent) {
	select {
	case <-c.done:
	case c.events <- event:
	default:
		c.logger.Warn().Str("event", event.StreamEventType()).Msg("Event queue full, dropping")
		observability.RecordFrameDropped("queue_full")
	}
}

func (c *Client) writeJSON(frame interface{}) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("agent channel not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(frame)
}

// SendPromptBegin opens the agent prompt context.
func (c *Client) SendPromptBegin() error {
	return c.writeJSON(protocol.NewPromptBegin())
}

// SendSystemPrompt sends the full system prompt text.
func (c *Client) SendSystemPrompt(text string) error {
	return c.writeJSON(protocol.NewSystemPrompt(text))
}

// SendAudioBegin announces that audio input follows.
func (c *Client) SendAudioBegin() error {
	return c.writeJSON(protocol.NewAudioBegin())
}

// SendAudioInput sends one encoded capture frame.
func (c *Client) SendAudioInput(frameB64 string) error {
	if err := c.writeJSON(protocol.NewAudioInput(frameB64)); err != nil {
		return err
	}
	observability.RecordFrameSent(len(frameB64))
	return nil
}

// SendVoiceConfig selects the assistant voice.
func (c *Client) SendVoiceConfig(voiceID string) error {
	return c.writeJSON(protocol.NewVoiceConfig(voiceID))
}

// SendStopAudio tells the agent the client stopped sending audio.
func (c *Client) SendStopAudio() error {
	return c.writeJSON(protocol.NewStopAudio())
}

// SendSessionLocation reports the best-effort client location.
func (c *Client) SendSessionLocation(loc protocol.Location) error {
	return c.writeJSON(protocol.NewSessionLocation(loc))
}

// SendSessionDomain reports static client metadata.
func (c *Client) SendSessionDomain(d protocol.DomainInfo) error {
	return c.writeJSON(protocol.NewSessionDomain(d))
}

// Close shuts the channel down. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		c.writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()

		if err := conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Closing agent channel")
		}
	})
	return nil
}
