package protocol

// Outbound frames (client -> agent). Every frame carries a type tag; the agent
// requires promptBegin, systemPrompt and audioBegin in that order before the
// first audioInput frame.

// PromptBegin opens a prompt context on the agent.
type PromptBegin struct {
	Type string `json:"type"`
}

// SystemPrompt carries the full system prompt text.
type SystemPrompt struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// AudioBegin announces that audio input frames follow.
type AudioBegin struct {
	Type string `json:"type"`
}

// AudioInput carries one base64-encoded PCM16 capture frame.
type AudioInput struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// VoiceConfig selects the assistant voice.
type VoiceConfig struct {
	Type    string `json:"type"`
	VoiceID string `json:"voiceId"`
}

// StopAudio tells the agent the client stopped sending audio.
type StopAudio struct {
	Type string `json:"type"`
}

// SessionLocation reports the best-effort client location.
type SessionLocation struct {
	Type     string   `json:"type"`
	Location Location `json:"location"`
}

// SessionDomain reports static client metadata once per connect.
type SessionDomain struct {
	Type   string     `json:"type"`
	Domain DomainInfo `json:"domain"`
}

func NewPromptBegin() PromptBegin           { return PromptBegin{Type: "promptBegin"} }
func NewSystemPrompt(text string) SystemPrompt {
	return SystemPrompt{Type: "systemPrompt", Content: text}
}
func NewAudioBegin() AudioBegin { return AudioBegin{Type: "audioBegin"} }
func NewAudioInput(frameB64 string) AudioInput {
	return AudioInput{Type: "audioInput", Content: frameB64}
}
func NewVoiceConfig(voiceID string) VoiceConfig {
	return VoiceConfig{Type: "voiceConfig", VoiceID: voiceID}
}
func NewStopAudio() StopAudio { return StopAudio{Type: "stopAudio"} }
func NewSessionLocation(loc Location) SessionLocation {
	return SessionLocation{Type: "sessionLocation", Location: loc}
}
func NewSessionDomain(d DomainInfo) SessionDomain {
	return SessionDomain{Type: "sessionDomain", Domain: d}
}
