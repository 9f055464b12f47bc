package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"codepair/internal/agent"
	"codepair/internal/edit"
	"codepair/internal/events"
	"codepair/internal/models"
	"codepair/internal/protocol"
	"codepair/internal/review"
	"codepair/internal/transcript"
	"codepair/internal/transport"
	"codepair/internal/workspace"
)

// sessionRuntime is everything a live pairing session owns: the engine
// pipeline on the shell side and, for in-process sessions, the agent side of
// the pipe as well.
type sessionRuntime struct {
	client       *agent.Client // nil when the agent runs remotely
	runner       *agent.Runner // nil when the agent runs remotely
	channel      transport.Channel
	dispatcher   *protocol.Dispatcher
	accumulator  *transcript.Accumulator
	orchestrator *review.Orchestrator
	store        *workspace.Store
	snapshotter  *workspace.Snapshotter

	conversation  *models.Conversation
	workspaceRow  *models.Workspace
	generation    protocol.Generation
	modelKey      string
	modelDisplay  string
	providerID    string
	providerLabel string

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{} // reader loop exited
	agentDone chan struct{} // in-process serve loop exited; nil when remote
}

// SessionService opens, feeds, and tears down pairing sessions. One session
// per conversation; the runtime map is keyed by the session key.
type SessionService struct {
	rootCtx       context.Context
	workspaces    WorkspaceService
	snapshots     *SnapshotService
	keyringSvc    *KeyringService
	conversations ConversationService
	modelConfigs  ModelConfigService
	settings      SettingsService
	logger        *zap.Logger

	sessionMu       sync.RWMutex
	sessionRuntimes map[string]*sessionRuntime // sessionKey -> runtime
}

func NewSessionService(
	workspaces WorkspaceService,
	snapshots *SnapshotService,
	keyringSvc *KeyringService,
	conversations ConversationService,
	modelConfigs ModelConfigService,
	settings SettingsService,
	logger *zap.Logger,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		workspaces:      workspaces,
		snapshots:       snapshots,
		keyringSvc:      keyringSvc,
		conversations:   conversations,
		modelConfigs:    modelConfigs,
		settings:        settings,
		logger:          logger.Named("session"),
		sessionRuntimes: make(map[string]*sessionRuntime),
	}
}

func (s *SessionService) Startup(ctx context.Context) error {
	s.rootCtx = ctx
	if s.workspaces == nil {
		return fmt.Errorf("workspace service is not configured")
	}
	if s.snapshots == nil {
		return fmt.Errorf("snapshot service is not configured")
	}
	if s.keyringSvc == nil {
		return fmt.Errorf("keyring service is not configured")
	}
	if s.conversations == nil {
		return fmt.Errorf("conversation service is not configured")
	}
	if s.modelConfigs == nil {
		return fmt.Errorf("model configuration service is not configured")
	}
	if s.settings == nil {
		return fmt.Errorf("settings service is not configured")
	}
	return nil
}

func makeSessionKey(conversationID uint) string {
	return fmt.Sprintf("session:%d", conversationID)
}

func resolveSessionKey(sessionKeyOverride string, conversationID uint) string {
	override := strings.TrimSpace(sessionKeyOverride)
	if override != "" {
		return override
	}
	return makeSessionKey(conversationID)
}

// StartSessionOptions selects what to pair on. Zero values fall back to the
// persisted settings.
type StartSessionOptions struct {
	WorkspacePath     string
	ConversationTitle string
	ModelKey          string
	Generation        string
	RemoteAddr        string // dial a standalone agent instead of running in-process
	OnUpdate          func() // transcript change notification, typically the shell redraw
}

// Session is the live handle the shell drives. Engine components are
// exposed directly; lifecycle stays with the service.
type Session struct {
	Key           string
	Conversation  *models.Conversation
	Workspace     *models.Workspace
	Generation    protocol.Generation
	ModelDisplay  string
	ProviderLabel string

	svc *SessionService
	rt  *sessionRuntime
}

func (ses *Session) Accumulator() *transcript.Accumulator { return ses.rt.accumulator }
func (ses *Session) Orchestrator() *review.Orchestrator   { return ses.rt.orchestrator }
func (ses *Session) Store() *workspace.Store              { return ses.rt.store }

// Send submits one user message to the agent.
func (ses *Session) Send(text string) error { return ses.svc.SendMessage(ses.Key, text) }

// Stop interrupts the streaming turn, if any.
func (ses *Session) Stop() { ses.svc.StopStream(ses.Key) }

// Close tears the session down and persists its final state.
func (ses *Session) Close() error { return ses.svc.CloseSession(ses.Key) }

// PriorTranscript loads the persisted bubbles from earlier runs of this
// conversation, oldest first.
func (ses *Session) PriorTranscript(ctx context.Context) ([]*models.TranscriptEntry, error) {
	return ses.svc.conversations.Transcript(ctx, ses.Conversation.ID)
}

// StartSession opens a pairing session on a workspace: it ensures the
// conversation row, builds the review pipeline, and connects an agent,
// in-process over a pipe by default or remotely when an address is given.
func (s *SessionService) StartSession(opts StartSessionOptions) (*Session, error) {
	if s.rootCtx == nil {
		return nil, fmt.Errorf("session service not initialized")
	}

	settings, err := s.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	modelKey := strings.TrimSpace(opts.ModelKey)
	if modelKey == "" {
		modelKey = strings.TrimSpace(settings.ActiveModelKey)
	}
	if modelKey == "" {
		if fallback, fbErr := s.modelConfigs.DefaultModelForProvider(settings.ActiveProvider); fbErr == nil && fallback != nil {
			modelKey = fallback.Key
		}
	}
	if modelKey == "" {
		return nil, fmt.Errorf("ERR_MODEL_NOT_FOUND:no model selected and no enabled default for provider %s", settings.ActiveProvider)
	}

	generation := protocol.Generation(strings.TrimSpace(opts.Generation))
	if generation == "" {
		generation = protocol.Generation(settings.Generation)
	}
	if generation != protocol.GenerationFlat && generation != protocol.GenerationRich {
		generation = protocol.GenerationRich
	}

	wsRow, root, err := s.workspaces.Open(s.rootCtx, opts.WorkspacePath)
	if err != nil {
		return nil, fmt.Errorf("ERR_WORKSPACE_INVALID:%v", err)
	}

	modelInfo, err := s.modelConfigs.GetModel(modelKey)
	if err != nil {
		return nil, fmt.Errorf("ERR_MODEL_NOT_FOUND:%v", err)
	}

	conv, err := s.conversations.Ensure(s.rootCtx, wsRow.ID, opts.ConversationTitle, modelInfo.ProviderID, modelKey, string(generation))
	if err != nil {
		return nil, fmt.Errorf("ensure conversation: %w", err)
	}

	sessionKey := makeSessionKey(conv.ID)
	if _, exists := s.getSessionRuntime(sessionKey); exists {
		return nil, fmt.Errorf("ERR_SESSION_EXISTS:a session for conversation %d is already open", conv.ID)
	}

	runCtx, cancel := context.WithCancel(s.rootCtx)
	runCtx = events.WithSession(runCtx, sessionKey)

	rt := &sessionRuntime{
		conversation: conv,
		workspaceRow: wsRow,
		generation:   generation,
		modelKey:     modelKey,
		ctx:          runCtx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	rt.snapshotter = s.snapshots.Snapshotter(root)
	if rt.snapshotter == nil {
		s.logger.Info("workspace has no git repository, pre-edit snapshots disabled",
			zap.String("workspace", root.Base()))
	}
	rt.store = workspace.NewStore(root, rt.snapshotter, s.logger)
	rt.orchestrator = review.NewOrchestrator(rt.store, s.appliedConsumer(rt), s.logger)
	rt.accumulator = transcript.NewAccumulator(
		roundSink{orch: rt.orchestrator, snaps: rt.snapshotter},
		rt.store.Resolve,
		opts.OnUpdate,
		s.logger,
	)
	rt.dispatcher = protocol.NewDispatcher(s.persistingHandlers(rt), s.logger)

	remoteAddr := strings.TrimSpace(opts.RemoteAddr)
	if remoteAddr == "" {
		remoteAddr = strings.TrimSpace(settings.AgentAddr)
	}

	if remoteAddr != "" {
		ch, dialErr := transport.Dial(runCtx, agent.SessionURL(remoteAddr))
		if dialErr != nil {
			cancel()
			return nil, fmt.Errorf("ERR_AGENT_UNREACHABLE:%v", dialErr)
		}
		rt.channel = ch
		rt.providerID = modelInfo.ProviderID
		rt.providerLabel = providerLabelOf(modelInfo)
		rt.modelDisplay = modelInfo.DisplayName
	} else {
		client, info, clientErr := s.instantiateAgentClient(modelKey)
		if clientErr != nil {
			cancel()
			return nil, clientErr
		}
		rt.client = client
		rt.providerID = info.ProviderID
		rt.providerLabel = providerLabelOf(info)
		rt.modelDisplay = info.DisplayName

		if conv.MessagesJSON != "" {
			if loadErr := client.LoadConversationHistoryJSON(conv.MessagesJSON); loadErr != nil {
				emitSession(runCtx, sessionKey, events.NewWarn(fmt.Sprintf("Could not restore conversation history: %v", loadErr)))
			} else {
				emitSession(runCtx, sessionKey, events.NewInfo("Restored conversation history"))
			}
		}

		shellEnd, agentEnd := transport.NewPipe()
		rt.channel = shellEnd
		rt.runner = agent.NewRunner(client, sessionKey, root, generation, s.logger)
		rt.agentDone = make(chan struct{})
		go func() {
			defer close(rt.agentDone)
			defer rt.runner.Close()
			agent.ServeChannel(runCtx, agentEnd, rt.runner, s.logger)
		}()
	}

	go s.readLoop(rt, sessionKey)

	s.setSessionRuntime(sessionKey, rt)
	emitSession(runCtx, sessionKey, events.NewInfo(fmt.Sprintf("Session opened with %s via %s", rt.modelDisplay, rt.providerLabel)))

	return &Session{
		Key:           sessionKey,
		Conversation:  conv,
		Workspace:     wsRow,
		Generation:    generation,
		ModelDisplay:  rt.modelDisplay,
		ProviderLabel: rt.providerLabel,
		svc:           s,
		rt:            rt,
	}, nil
}

// readLoop pumps inbound frames into the dispatcher until the channel or
// the session context closes.
func (s *SessionService) readLoop(rt *sessionRuntime, sessionKey string) {
	defer close(rt.done)
	for {
		frame, err := rt.channel.Receive(rt.ctx)
		if err != nil {
			if rt.ctx.Err() == nil {
				s.logger.Warn("session channel closed", zap.String("session", sessionKey), zap.Error(err))
				emitSession(rt.ctx, sessionKey, events.NewError("Connection to the agent was lost"))
			}
			return
		}
		rt.dispatcher.Dispatch(frame)
	}
}

// SendMessage records the user's bubble, persists it, and ships the message
// to the agent. The reply comes back asynchronously through the read loop.
func (s *SessionService) SendMessage(sessionKey, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("message text is required")
	}
	rt, ok := s.getSessionRuntime(sessionKey)
	if !ok {
		return fmt.Errorf("ERR_SESSION_NOT_FOUND:%s", sessionKey)
	}

	rt.accumulator.AddUserMessage(text)
	if err := s.conversations.AppendEntry(rt.ctx, &models.TranscriptEntry{
		ConversationID: rt.conversation.ID,
		Role:           string(transcript.RoleUser),
		Content:        text,
	}); err != nil {
		s.logger.Warn("persist user message failed", zap.String("session", sessionKey), zap.Error(err))
	}

	frame, err := protocol.Encode(protocol.UserMessage{Text: text})
	if err != nil {
		return fmt.Errorf("encode user message: %w", err)
	}
	if err := rt.channel.Send(rt.ctx, frame); err != nil {
		return fmt.Errorf("send user message: %w", err)
	}
	return nil
}

// StopStream interrupts the in-flight turn of a session, if any.
func (s *SessionService) StopStream(sessionKey string) {
	rt, ok := s.getSessionRuntime(sessionKey)
	if !ok {
		return
	}
	if rt.client != nil {
		if rt.client.StopStream() {
			emitSession(rt.ctx, sessionKey, events.NewWarn("Streaming interrupted"))
		}
		return
	}
	s.logger.Debug("stop requested for remote session, no control channel", zap.String("session", sessionKey))
}

// CloseSession persists the final conversation state and releases the
// runtime. Safe to call for an unknown key.
func (s *SessionService) CloseSession(sessionKey string) error {
	rt, ok := s.getSessionRuntime(sessionKey)
	if !ok {
		return nil
	}

	s.persistTurn(rt)

	rt.cancel()
	_ = rt.channel.Close()

	waitDone(rt.done, 2*time.Second)
	if rt.agentDone != nil {
		waitDone(rt.agentDone, 2*time.Second)
	}

	s.deleteSessionRuntime(sessionKey)
	s.logger.Info("session closed", zap.String("session", sessionKey))
	return nil
}

// CloseAll tears down every live session, for shell shutdown.
func (s *SessionService) CloseAll() {
	s.sessionMu.RLock()
	keys := make([]string, 0, len(s.sessionRuntimes))
	for key := range s.sessionRuntimes {
		keys = append(keys, key)
	}
	s.sessionMu.RUnlock()

	for _, key := range keys {
		_ = s.CloseSession(key)
	}
}

func waitDone(ch <-chan struct{}, timeout time.Duration) {
	select {
	case <-ch:
	case <-time.After(timeout):
	}
}

// NewAgentClient builds a provider client for hosts that run the agent
// outside a session, like the standalone agent server command.
func (s *SessionService) NewAgentClient(modelKey string) (*agent.Client, *models.LLMModel, error) {
	return s.instantiateAgentClient(modelKey)
}

// instantiateAgentClient builds the provider-specific model client for an
// in-process agent, keyed off the catalog entry and the stored API key.
func (s *SessionService) instantiateAgentClient(modelKey string) (*agent.Client, *models.LLMModel, error) {
	if s.rootCtx == nil {
		return nil, nil, fmt.Errorf("session service not initialized")
	}

	model, err := s.modelConfigs.GetModel(modelKey)
	if err != nil {
		return nil, nil, fmt.Errorf("ERR_MODEL_NOT_FOUND:%v", err)
	}
	if !model.Enabled {
		return nil, nil, fmt.Errorf("ERR_MODEL_DISABLED:%s", model.DisplayName)
	}

	providerID := strings.TrimSpace(model.ProviderID)
	if providerID == "" {
		return nil, nil, fmt.Errorf("model %s has no provider id", model.DisplayName)
	}

	apiKey, err := s.keyringSvc.GetApiKey(providerID)
	if err != nil {
		return nil, nil, fmt.Errorf("read api key for %s: %w", providerID, err)
	}
	if apiKey == "" {
		return nil, nil, fmt.Errorf("ERR_NO_API_KEY:%s", providerID)
	}

	var (
		client    *agent.Client
		createErr error
	)
	switch agent.ProviderID(providerID) {
	case agent.ProviderAnthropic:
		client, createErr = agent.NewClaudeClient(s.rootCtx, apiKey, agent.ClaudeOptions{
			Model:     model.APIName,
			MaxTokens: model.MaxTokens,
		})
	case agent.ProviderOpenAI:
		client, createErr = agent.NewOpenAIClient(s.rootCtx, apiKey, agent.OpenAIOptions{
			Model: model.APIName,
		})
	case agent.ProviderGemini:
		client, createErr = agent.NewGeminiClient(s.rootCtx, apiKey, agent.GeminiOptions{
			Model: model.APIName,
		})
	default:
		return nil, nil, fmt.Errorf("ERR_UNSUPPORTED_PROVIDER:%s", providerID)
	}
	if createErr != nil {
		return nil, nil, fmt.Errorf("build %s client: %w", providerID, createErr)
	}

	return client.WithLogger(s.logger), model, nil
}

func (s *SessionService) getSessionRuntime(sessionKey string) (*sessionRuntime, bool) {
	s.sessionMu.RLock()
	defer s.sessionMu.RUnlock()
	rt, ok := s.sessionRuntimes[sessionKey]
	return rt, ok
}

func (s *SessionService) setSessionRuntime(sessionKey string, rt *sessionRuntime) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	if rt == nil {
		delete(s.sessionRuntimes, sessionKey)
		return
	}
	if existing, ok := s.sessionRuntimes[sessionKey]; ok && existing != rt && existing.client != nil {
		existing.client.StopStream()
	}
	s.sessionRuntimes[sessionKey] = rt
}

func (s *SessionService) deleteSessionRuntime(sessionKey string) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	if existing, ok := s.sessionRuntimes[sessionKey]; ok && existing != nil && existing.client != nil {
		existing.client.StopStream()
	}
	delete(s.sessionRuntimes, sessionKey)
}

// appliedConsumer persists every accepted edit against the conversation.
func (s *SessionService) appliedConsumer(rt *sessionRuntime) review.AppliedFunc {
	return func(e review.PendingEdit) {
		if err := s.conversations.RecordApplied(rt.ctx, rt.conversation.ID, e); err != nil {
			s.logger.Warn("persist applied edit failed",
				zap.String("file", e.FilePath),
				zap.Error(err))
		}
	}
}

// persistingHandlers decorates the accumulator's dispatcher callbacks so
// every finished turn lands in the transcript table and the provider
// history is saved for resume.
func (s *SessionService) persistingHandlers(rt *sessionRuntime) protocol.Handlers {
	base := rt.accumulator.Handlers(rt.ctx)
	h := base
	h.DoneFlat = func(done protocol.CompletionFlat) {
		base.DoneFlat(done)
		s.persistTurn(rt)
	}
	h.DoneRich = func(done protocol.CompletionRich) {
		base.DoneRich(done)
		s.persistTurn(rt)
	}
	h.TurnFailed = func(perr protocol.ProtocolError) {
		base.TurnFailed(perr)
		s.persistTurn(rt)
	}
	return h
}

// persistTurn stores the newest finalized assistant bubble and the current
// provider history. Failures are logged; the live session keeps going.
func (s *SessionService) persistTurn(rt *sessionRuntime) {
	bubbles := rt.accumulator.Bubbles()
	for i := len(bubbles) - 1; i >= 0; i-- {
		b := bubbles[i]
		if b.Role != transcript.RoleAssistant {
			continue
		}
		if b.IsStreaming {
			break
		}
		if err := s.conversations.AppendEntry(rt.ctx, &models.TranscriptEntry{
			ConversationID: rt.conversation.ID,
			TurnID:         b.ID,
			Role:           string(b.Role),
			Intent:         b.Intent,
			Content:        b.Text,
		}); err != nil {
			s.logger.Warn("persist transcript entry failed", zap.Error(err))
		}
		break
	}

	if rt.client != nil {
		history, err := rt.client.ConversationHistoryJSON()
		if err != nil {
			s.logger.Warn("serialize conversation history failed", zap.Error(err))
			return
		}
		if err := s.conversations.SaveMessages(rt.ctx, rt.conversation.ID, history); err != nil {
			s.logger.Warn("persist conversation history failed", zap.Error(err))
		}
	}
}

// roundSink forwards proposal batches to the orchestrator and opens a new
// snapshot round whenever a non-empty batch arrives.
type roundSink struct {
	orch  *review.Orchestrator
	snaps *workspace.Snapshotter
}

func (rs roundSink) AddEditsFromInstructions(ctx context.Context, instrs []edit.Instruction, resolve review.ContentResolver, explanation string) int {
	if len(instrs) > 0 && rs.snaps != nil {
		rs.snaps.MarkRound()
	}
	return rs.orch.AddEditsFromInstructions(ctx, instrs, resolve, explanation)
}

func providerLabelOf(model *models.LLMModel) string {
	label := strings.TrimSpace(model.ProviderName)
	if label == "" {
		label = strings.TrimSpace(model.ProviderID)
	}
	return label
}

// emitSession publishes evt on the turn topic, stamped with the session key.
func emitSession(ctx context.Context, sessionKey string, evt events.EngineEvent) {
	evt.SessionKey = sessionKey
	events.Emit(ctx, events.TopicTurn, evt)
}
