package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-client/internal/protocol"
)

var testUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// newAgentServer runs handler against each accepted websocket connection and
// returns a client already dialed into it.
func newAgentServer(t *testing.T, handler func(conn *websocket.Conn)) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		handler(conn)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client := NewClient(wsURL, zerolog.Nop())
	if err := client.Dial(context.Background()); err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client, server
}

func nextEvent(t *testing.T, client *Client) protocol.StreamEvent {
	t.Helper()
	select {
	case event := <-client.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for event")
		return nil
	}
}

func TestClient_ConnectEventDeliveredFirst(t *testing.T) {
	client, _ := newAgentServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"streamComplete"}`))
	})

	first := nextEvent(t, client)
	if _, ok := first.(protocol.ConnectEvent); !ok {
		t.Fatalf("Expected ConnectEvent first, got %T", first)
	}

	second := nextEvent(t, client)
	if _, ok := second.(protocol.StreamCompleteEvent); !ok {
		t.Errorf("Expected StreamCompleteEvent, got %T", second)
	}
}

func TestClient_DeliversDecodedEvents(t *testing.T) {
	client, _ := newAgentServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"textOutput","role":"ASSISTANT","content":"hi"}`))
	})

	nextEvent(t, client) // connect

	event := nextEvent(t, client)
	text, ok := event.(protocol.TextOutputEvent)
	if !ok {
		t.Fatalf("Expected TextOutputEvent, got %T", event)
	}
	if text.Content != "hi" {
		t.Errorf("Expected content 'hi', got '%s'", text.Content)
	}
}

func TestClient_UndecodableFrameDropped(t *testing.T) {
	client, _ := newAgentServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"unknownKind"}`))
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"textOutput","role":"USER","content":"still here"}`))
	})

	nextEvent(t, client) // connect

	// The bad frames are dropped; the stream keeps flowing.
	event := nextEvent(t, client)
	text, ok := event.(protocol.TextOutputEvent)
	if !ok {
		t.Fatalf("Expected TextOutputEvent after dropped frames, got %T", event)
	}
	if text.Content != "still here" {
		t.Errorf("Expected content 'still here', got '%s'", text.Content)
	}
}

func TestClient_DisconnectEventOnServerClose(t *testing.T) {
	client, _ := newAgentServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})

	nextEvent(t, client) // connect

	event := nextEvent(t, client)
	if _, ok := event.(protocol.DisconnectEvent); !ok {
		t.Errorf("Expected DisconnectEvent on server close, got %T", event)
	}
}

func TestClient_SendFramesCarryTypeTags(t *testing.T) {
	received := make(chan string, 16)
	client, _ := newAgentServer(t, func(conn *websocket.Conn) {
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var envelope struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(message, &envelope); err != nil {
				t.Errorf("Server received invalid JSON: %v", err)
				return
			}
			received <- envelope.Type
		}
	})

	sends := []struct {
		send      func() error
		eventType string
	}{
		{client.SendPromptBegin, "promptBegin"},
		{func() error { return client.SendSystemPrompt("be helpful") }, "systemPrompt"},
		{client.SendAudioBegin, "audioBegin"},
		{func() error { return client.SendAudioInput("AAAA") }, "audioInput"},
		{func() error { return client.SendVoiceConfig("matthew") }, "voiceConfig"},
		{client.SendStopAudio, "stopAudio"},
		{func() error { return client.SendSessionLocation(protocol.Location{Latitude: 1}) }, "sessionLocation"},
		{func() error { return client.SendSessionDomain(protocol.DomainInfo{Domain: "example.com"}) }, "sessionDomain"},
	}

	for _, s := range sends {
		if err := s.send(); err != nil {
			t.Fatalf("Send %s failed: %v", s.eventType, err)
		}
		select {
		case got := <-received:
			if got != s.eventType {
				t.Errorf("Expected frame type '%s', got '%s'", s.eventType, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for frame type '%s'", s.eventType)
		}
	}
}

func TestClient_SendBeforeDial(t *testing.T) {
	client := NewClient("ws://127.0.0.1:1/ws", zerolog.Nop())
	if err := client.SendPromptBegin(); err == nil {
		t.Error("Expected error sending before dial")
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	client, _ := newAgentServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Second close failed: %v", err)
	}
}
