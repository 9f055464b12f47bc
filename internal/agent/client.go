// Package agent hosts the reference pair-programming agent: provider-backed
// chat model clients, the ReAct turn runner that streams protocol messages,
// and a websocket server exposing it to the shell. The agent inspects the
// workspace through read-only tools and proposes edits through record-only
// tools; applying anything is the review engine's job.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"codepair/internal/agent/tools"
	"codepair/internal/edit"
)

// ProviderID names a supported model provider.
type ProviderID string

const (
	ProviderAnthropic ProviderID = "anthropic"
	ProviderOpenAI    ProviderID = "openai"
	ProviderGemini    ProviderID = "gemini"
)

// Providers lists every provider a client can be constructed for.
func Providers() []ProviderID {
	return []ProviderID{ProviderAnthropic, ProviderOpenAI, ProviderGemini}
}

// ErrTurnInProgress reports a StartTurn while a previous turn is still
// streaming on the same client.
var ErrTurnInProgress = errors.New("a turn is already streaming for this session")

const defaultClaudeMaxTokens = 8192

// ClaudeOptions configures an Anthropic-backed client.
type ClaudeOptions struct {
	Model     string
	MaxTokens int
}

// OpenAIOptions configures an OpenAI-backed client.
type OpenAIOptions struct {
	Model string
}

// GeminiOptions configures a Gemini-backed client.
type GeminiOptions struct {
	Model string
}

// Client wraps one provider chat model together with the per-session state
// a conversation needs: message history, the file-open history backing the
// read-before-propose policy, and the single-turn-at-a-time guard.
type Client struct {
	chatModel model.ToolCallingChatModel
	provider  ProviderID
	modelName string
	logger    *zap.Logger

	historyMu sync.Mutex
	history   []*schema.Message

	fileHistoryMu   sync.Mutex
	fileOpenHistory []string

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewClaudeClient builds a Client backed by Anthropic's API.
func NewClaudeClient(ctx context.Context, key string, opts ClaudeOptions) (*Client, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}
	cm, err := claude.NewChatModel(ctx, &claude.Config{
		APIKey:    key,
		Model:     opts.Model,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create claude chat model: %w", err)
	}
	return newClient(cm, ProviderAnthropic, opts.Model), nil
}

// NewOpenAIClient builds a Client backed by OpenAI's API.
func NewOpenAIClient(ctx context.Context, key string, opts OpenAIOptions) (*Client, error) {
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey: key,
		Model:  opts.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}
	return newClient(cm, ProviderOpenAI, opts.Model), nil
}

// NewGeminiClient builds a Client backed by Google's Gemini API.
func NewGeminiClient(ctx context.Context, key string, opts GeminiOptions) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client: gc,
		Model:  opts.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini chat model: %w", err)
	}
	return newClient(cm, ProviderGemini, opts.Model), nil
}

func newClient(cm model.ToolCallingChatModel, provider ProviderID, modelName string) *Client {
	return &Client{
		chatModel: cm,
		provider:  provider,
		modelName: modelName,
		logger:    zap.NewNop(),
	}
}

// WithLogger attaches a logger; a nil logger keeps the no-op default.
func (c *Client) WithLogger(logger *zap.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Provider returns the provider this client talks to.
func (c *Client) Provider() ProviderID { return c.provider }

// ModelName returns the configured model identifier.
func (c *Client) ModelName() string { return c.modelName }

// IsRunning reports whether a turn is currently streaming.
func (c *Client) IsRunning() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.running
}

// StopStream cancels the in-flight turn, if any, and reports whether one
// was stopped.
func (c *Client) StopStream() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if !c.running || c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

func (c *Client) beginTurn(cancel context.CancelFunc) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.running {
		return ErrTurnInProgress
	}
	c.running = true
	c.cancel = cancel
	return nil
}

func (c *Client) endTurn() {
	c.runMu.Lock()
	c.running = false
	c.cancel = nil
	c.runMu.Unlock()
}

// recordOpenedFile appends a root-relative path to the file-open history if
// not already present.
func (c *Client) recordOpenedFile(p string) {
	norm := filepath.ToSlash(strings.TrimSpace(p))
	if norm == "" {
		return
	}
	c.fileHistoryMu.Lock()
	defer c.fileHistoryMu.Unlock()
	for _, existing := range c.fileOpenHistory {
		if existing == norm {
			return
		}
	}
	c.fileOpenHistory = append(c.fileOpenHistory, norm)
}

// hasOpenedFile reports whether the session read the given root-relative
// path at some point.
func (c *Client) hasOpenedFile(p string) bool {
	norm := filepath.ToSlash(strings.TrimSpace(p))
	c.fileHistoryMu.Lock()
	defer c.fileHistoryMu.Unlock()
	for _, existing := range c.fileOpenHistory {
		if existing == norm {
			return true
		}
	}
	return false
}

// ResetFileOpenHistory clears the read history, typically when a session is
// rebound to a different workspace.
func (c *Client) ResetFileOpenHistory() {
	c.fileHistoryMu.Lock()
	c.fileOpenHistory = nil
	c.fileHistoryMu.Unlock()
}

// FileOpenHistory returns a copy of the files read so far.
func (c *Client) FileOpenHistory() []string {
	c.fileHistoryMu.Lock()
	defer c.fileHistoryMu.Unlock()
	out := make([]string, len(c.fileOpenHistory))
	copy(out, c.fileOpenHistory)
	return out
}

// appendHistory records finished turn messages.
func (c *Client) appendHistory(msgs ...*schema.Message) {
	c.historyMu.Lock()
	c.history = append(c.history, msgs...)
	c.historyMu.Unlock()
}

// History returns a copy of the conversation so far.
func (c *Client) History() []*schema.Message {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	out := make([]*schema.Message, len(c.history))
	copy(out, c.history)
	return out
}

// ConversationHistoryJSON serializes the conversation for persistence.
func (c *Client) ConversationHistoryJSON() (string, error) {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	if len(c.history) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(c.history)
	if err != nil {
		return "", fmt.Errorf("marshal conversation history: %w", err)
	}
	return string(data), nil
}

// LoadConversationHistoryJSON restores a previously serialized conversation,
// replacing whatever the client held.
func (c *Client) LoadConversationHistoryJSON(data string) error {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		c.historyMu.Lock()
		c.history = nil
		c.historyMu.Unlock()
		return nil
	}
	var msgs []*schema.Message
	if err := json.Unmarshal([]byte(trimmed), &msgs); err != nil {
		return fmt.Errorf("unmarshal conversation history: %w", err)
	}
	c.historyMu.Lock()
	c.history = msgs
	c.historyMu.Unlock()
	return nil
}

// LastAssistantMessage returns the content of the most recent assistant
// turn, or "" when there is none.
func (c *Client) LastAssistantMessage() string {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	for i := len(c.history) - 1; i >= 0; i-- {
		if c.history[i] != nil && c.history[i].Role == schema.Assistant {
			return c.history[i].Content
		}
	}
	return ""
}

// InitTools builds the tool set for a turn. Read tools record opened files;
// the propose tools are wrapped with a read-before-propose policy so the
// model cannot target files it has never looked at. When includeProposals
// is false (the legacy flat protocol has no structured channel to carry
// edits) only the inspection tools are registered.
func (c *Client) InitTools(includeProposals bool) ([]tool.BaseTool, error) {
	readWithHistory := func(ctx context.Context, in *tools.ReadFileInput) (*tools.ReadFileOutput, error) {
		out, err := tools.ReadFile(ctx, in)
		if err == nil && out != nil {
			if out.Metadata == nil || out.Metadata["error"] == "" {
				c.recordOpenedFile(out.Title)
			}
		}
		return out, err
	}

	readFileTool, err := utils.InferTool("read_file", toolDesc("read_file", "read a file with line numbers and paging"), readWithHistory)
	if err != nil {
		return nil, err
	}
	listDirectoryTool, err := utils.InferTool("list_directory", toolDesc("list_directory", "render a directory tree"), tools.ListDirectory)
	if err != nil {
		return nil, err
	}
	globTool, err := utils.InferTool("glob", toolDesc("glob", "match workspace files against a glob pattern"), tools.Glob)
	if err != nil {
		return nil, err
	}
	grepTool, err := utils.InferTool("grep", toolDesc("grep", "scan file contents for a regular expression"), tools.Grep)
	if err != nil {
		return nil, err
	}

	set := []tool.BaseTool{readFileTool, listDirectoryTool, globTool, grepTool}
	if !includeProposals {
		return set, nil
	}

	proposeWithPolicy := func(ctx context.Context, in *tools.ProposeEditsInput) (*tools.ProposeEditsOutput, error) {
		if in != nil {
			for _, e := range in.Edits {
				if edit.Action(strings.TrimSpace(e.Action)) == edit.ActionCreateFile {
					continue
				}
				rel, ok := c.relInSession(ctx, e.FilePath)
				if !ok {
					break // let the tool produce its own escape diagnostics
				}
				if !c.hasOpenedFile(rel) {
					return &tools.ProposeEditsOutput{
						Title:  rel,
						Output: fmt.Sprintf("Format error: read %s with the read_file tool before proposing edits to it", rel),
						Metadata: map[string]string{
							"error": "format_error",
							"edits": "0",
						},
					}, nil
				}
			}
		}
		return tools.ProposeEdits(ctx, in)
	}

	proposeEditsTool, err := utils.InferTool("propose_edits", toolDesc("propose_edits", "propose edits to existing files for user review"), proposeWithPolicy)
	if err != nil {
		return nil, err
	}
	proposeFileTool, err := utils.InferTool("propose_file", toolDesc("propose_file", "propose a new file for user review"), tools.ProposeFile)
	if err != nil {
		return nil, err
	}

	return append(set, proposeEditsTool, proposeFileTool), nil
}

// relInSession normalizes a model-supplied path against the session root.
func (c *Client) relInSession(ctx context.Context, p string) (string, bool) {
	root, ok := tools.SessionRoot(tools.SessionIDFromContext(ctx))
	if !ok {
		return "", false
	}
	abs, err := root.Resolve(strings.TrimSpace(p))
	if err != nil {
		return "", false
	}
	return root.Rel(abs), true
}

func toolDesc(key, fallback string) string {
	if desc := tools.ToolDescription(key); desc != "" {
		return desc
	}
	return fallback
}
