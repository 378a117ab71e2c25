package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-client/internal/audio"
	"github.com/lexiqai/voice-client/internal/config"
	"github.com/lexiqai/voice-client/internal/configapi"
	"github.com/lexiqai/voice-client/internal/observability"
	"github.com/lexiqai/voice-client/internal/playback"
	"github.com/lexiqai/voice-client/internal/protocol"
)

// Transport is the controller's view of the agent channel.
type Transport interface {
	SendPromptBegin() error
	SendSystemPrompt(text string) error
	SendAudioBegin() error
	SendAudioInput(frameB64 string) error
	SendVoiceConfig(voiceID string) error
	SendStopAudio() error
	SendSessionLocation(loc protocol.Location) error
	SendSessionDomain(d protocol.DomainInfo) error
}

// ConfigSource fetches remote configuration before the handshake.
type ConfigSource interface {
	Fetch(ctx context.Context) (configapi.RemoteConfig, error)
}

// Deps are the collaborators a Controller composes. Transport, Device and
// Engine are required; the rest degrade to no-ops when nil.
type Deps struct {
	Config       *config.Config
	Transport    Transport
	Device       audio.Device
	Engine       playback.Engine
	Tracker      *audio.ActivityTracker
	ConfigSource ConfigSource
	Locate       func(ctx context.Context) protocol.Location
	Domain       protocol.DomainInfo
	NewRecorder  func(sessionID string) Recorder
	Logger       zerolog.Logger
}

// Controller owns the session lifecycle: bootstrapped collaborators in, a
// running capture/playback pipeline out. Lifecycle is cyclic, Idle through
// Active and back; the only terminal state is process exit.
type Controller struct {
	deps    Deps
	logger  zerolog.Logger
	sessCtx *Context
	history *TurnHistory
	router  *Router
	encoder *audio.CaptureEncoder

	// opMu serializes Start/Stop/ToggleMute across the user command loop
	// and the event goroutine's force-stop.
	opMu         sync.Mutex
	systemPrompt string
	voiceID      string
	metrics      *observability.Metrics

	bridgeMu sync.RWMutex
	bridge   *playback.Bridge

	recMu    sync.RWMutex
	recorder Recorder
}

// NewController composes a session over the given collaborators.
func NewController(deps Deps) *Controller {
	sessionID := observability.NewSessionID()
	logger := deps.Logger.With().Str("session_id", sessionID).Logger()

	c := &Controller{
		deps:         deps,
		logger:       logger,
		sessCtx:      NewContext(sessionID),
		history:      NewTurnHistory(),
		systemPrompt: deps.Config.SystemPrompt,
		voiceID:      deps.Config.VoiceID,
		bridge:       playback.NewBridge(deps.Engine, logger),
	}

	c.router = NewRouter(c.sessCtx, c.history, c, logger)
	c.router.SetStopFunc(c.forceStop)
	c.router.SetAnnounceFunc(c.announce)
	c.router.SetRecorderProvider(c.currentRecorder)

	c.encoder = audio.NewCaptureEncoder(deps.Device, deps.Transport, c.sessCtx, deps.Tracker, logger)
	return c
}

// Context exposes the session state for status display.
func (c *Controller) Context() *Context { return c.sessCtx }

// History returns the transcript so far.
func (c *Controller) History() []Turn { return c.history.Turns() }

// Run consumes inbound events until the context is cancelled or the stream
// closes. All protocol dispatch happens on this one goroutine.
func (c *Controller) Run(ctx context.Context, events <-chan protocol.StreamEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			c.router.Dispatch(event)
		}
	}
}

// Start begins a session. A no-op when already active; the handshake runs at
// most once per channel.
func (c *Controller) Start(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.sessCtx.ControlsEnabled() {
		return fmt.Errorf("agent channel lost, restart required")
	}
	if c.sessCtx.Active() {
		c.logger.Debug().Msg("Start requested while active, ignoring")
		return nil
	}

	if err := c.deps.Engine.Start(); err != nil {
		return fmt.Errorf("start playback engine: %w", err)
	}

	c.metrics = observability.NewSessionMetrics(c.sessCtx.ID())
	c.router.SetMetrics(c.metrics)

	if !c.sessCtx.Initialized() {
		c.refreshConfig(ctx)
		if err := c.handshake(); err != nil {
			return err
		}
		c.sessCtx.SetInitialized(true)
	}

	rec := Recorder(archiveNop{})
	if c.deps.NewRecorder != nil {
		if r := c.deps.NewRecorder(c.sessCtx.ID()); r != nil {
			rec = r
		}
	}
	c.setRecorder(rec)

	if err := c.encoder.Attach(rec); err != nil {
		return fmt.Errorf("attach capture: %w", err)
	}
	c.deps.Device.SetEnabled(true)
	if c.deps.Tracker != nil {
		c.deps.Tracker.Reset()
	}

	c.sessCtx.SetError("")
	c.sessCtx.SetMuted(false)
	c.sessCtx.SetActive(true)
	c.sessCtx.SetWaitingForUser(true)

	c.metrics.RecordSessionStart()
	c.logger.Info().Msg("Session started")
	return nil
}

// handshake emits the channel preamble in strict order. The agent must see
// prompt context before the first audio frame.
func (c *Controller) handshake() error {
	c.metrics.RecordHandshakeStart()

	if err := c.deps.Transport.SendPromptBegin(); err != nil {
		return fmt.Errorf("handshake prompt begin: %w", err)
	}
	if err := c.deps.Transport.SendSystemPrompt(c.systemPrompt); err != nil {
		return fmt.Errorf("handshake system prompt: %w", err)
	}
	if err := c.deps.Transport.SendAudioBegin(); err != nil {
		return fmt.Errorf("handshake audio begin: %w", err)
	}
	c.metrics.RecordHandshakeEnd()

	if err := c.deps.Transport.SendVoiceConfig(c.voiceID); err != nil {
		c.logger.Warn().Err(err).Msg("Voice config not accepted")
	}
	return nil
}

// refreshConfig pulls remote configuration before the handshake. Best-effort:
// on failure the previously cached values stay in force.
func (c *Controller) refreshConfig(ctx context.Context) {
	if c.deps.ConfigSource == nil {
		return
	}

	remote, err := c.deps.ConfigSource.Fetch(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Config refresh failed, keeping cached values")
		observability.RecordConfigRefresh(false)
		return
	}
	if remote.SystemPrompt != "" {
		c.systemPrompt = remote.SystemPrompt
	}
	if remote.VoiceID != "" {
		c.voiceID = remote.VoiceID
	}
	observability.RecordConfigRefresh(true)
}

// Stop tears the session down. Idempotent; always leaves the session muted
// and capture disabled.
func (c *Controller) Stop() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.stopLocked()
	return nil
}

func (c *Controller) forceStop() {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	if !c.sessCtx.Active() {
		c.sessCtx.SetMuted(true)
		c.deps.Device.SetEnabled(false)
		return
	}

	c.sessCtx.SetActive(false)
	c.deps.Device.SetEnabled(false)
	if err := c.encoder.Detach(); err != nil {
		c.logger.Warn().Err(err).Msg("Detaching capture")
	}

	c.Interrupt()
	if err := c.deps.Transport.SendStopAudio(); err != nil {
		c.logger.Warn().Err(err).Msg("Stop audio signal not sent")
	}

	c.history.EndTurn()

	if rec := c.currentRecorder(); rec != nil && !rec.Persisted() {
		if err := rec.Stop(); err != nil {
			c.logger.Warn().Err(err).Msg("Stopping recorder")
		}
	}

	// Fresh bridge so no partially played audio carries into the next
	// session.
	c.bridgeMu.Lock()
	c.bridge = playback.NewBridge(c.deps.Engine, c.logger)
	c.bridgeMu.Unlock()

	c.sessCtx.SetInitialized(false)
	c.sessCtx.SetMuted(true)
	c.sessCtx.SetOpenRole(protocol.RoleNone)
	c.sessCtx.SetWaitingForUser(false)
	c.sessCtx.SetWaitingForAssistant(false)
	c.sessCtx.SetDisplayAssistantText(false)

	if c.metrics != nil {
		c.metrics.RecordSessionEnd()
	}
	c.logger.Info().Msg("Session stopped")
}

// ToggleMute flips the mute flag and gates capture delivery. The transport is
// untouched; muting only silences the outbound frames.
func (c *Controller) ToggleMute() bool {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	muted := !c.sessCtx.Muted()
	c.sessCtx.SetMuted(muted)
	c.deps.Device.SetEnabled(!muted && c.sessCtx.Active())
	c.logger.Info().Bool("muted", muted).Msg("Mute toggled")
	return muted
}

// Close releases the capture device and playback engine.
func (c *Controller) Close() error {
	_ = c.Stop()
	if err := c.deps.Device.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("Closing capture device")
	}
	return c.deps.Engine.Close()
}

// announce reports static client metadata after the channel connects. Runs
// off the dispatch goroutine; the location lookup can take seconds.
func (c *Controller) announce() {
	go func() {
		if err := c.deps.Transport.SendSessionDomain(c.deps.Domain); err != nil {
			c.logger.Warn().Err(err).Msg("Session domain not announced")
			return
		}
		if c.deps.Locate == nil {
			return
		}
		loc := c.deps.Locate(context.Background())
		if loc.Unavailable {
			return
		}
		if err := c.deps.Transport.SendSessionLocation(loc); err != nil {
			c.logger.Warn().Err(err).Msg("Session location not announced")
		}
	}()
}

// Submit forwards a playback frame to the current bridge. The controller
// proxies playback so the bridge instance can be swapped on stop.
func (c *Controller) Submit(frameB64 string) {
	c.bridgeMu.RLock()
	bridge := c.bridge
	c.bridgeMu.RUnlock()
	bridge.Submit(frameB64)
}

// Interrupt flushes the current bridge.
func (c *Controller) Interrupt() {
	c.bridgeMu.RLock()
	bridge := c.bridge
	c.bridgeMu.RUnlock()
	bridge.Interrupt()
}

func (c *Controller) setRecorder(rec Recorder) {
	c.recMu.Lock()
	c.recorder = rec
	c.recMu.Unlock()
}

func (c *Controller) currentRecorder() Recorder {
	c.recMu.RLock()
	defer c.recMu.RUnlock()
	return c.recorder
}

// archiveNop is the recorder used when archival is disabled.
type archiveNop struct{}

func (archiveNop) Write(pcm []byte) {}
func (archiveNop) Stop() error      { return nil }
func (archiveNop) Persisted() bool  { return true }
