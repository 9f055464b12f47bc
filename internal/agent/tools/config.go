// Package tools provides the agent-callable tools: read-only workspace
// inspection (read_file, list_directory, glob, grep) and propose-only
// mutations (propose_edits, propose_file). Proposal tools never touch a
// file; they record edit instructions for the review engine, which owns
// every write.
package tools

import (
	"context"
	"errors"
	"strings"
	"sync"

	"codepair/internal/workspace"
)

// ErrNoSession reports a tool invocation whose context carries no bound
// workspace session.
var ErrNoSession = errors.New("no workspace session bound for this context")

// sessionState is the per-session binding tools resolve through: the
// workspace root all paths are confined to, the effective ignore patterns,
// and the recorder that collects proposed edits during a turn.
type sessionState struct {
	root      workspace.Root
	ignores   []string
	proposals *Recorder
}

var (
	sessionMu sync.RWMutex
	sessions  = make(map[string]*sessionState)
)

type sessionIDCtxKey struct{}

// ContextWithSession annotates ctx with a logical session identifier so
// tools can keep per-session state without interfering with parallel
// sessions.
func ContextWithSession(ctx context.Context, sessionID string) context.Context {
	if strings.TrimSpace(sessionID) == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDCtxKey{}, sessionID)
}

// SessionIDFromContext extracts the logical session identifier associated
// with ctx.
func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(sessionIDCtxKey{}).(string)
	return id
}

// BindSession associates a workspace root and a proposal recorder with a
// session identifier. Ignore patterns are loaded from the root's defaults
// plus its ignore file.
func BindSession(sessionID string, root workspace.Root, proposals *Recorder) {
	if strings.TrimSpace(sessionID) == "" {
		return
	}
	sessionMu.Lock()
	defer sessionMu.Unlock()
	sessions[sessionID] = &sessionState{
		root:      root,
		ignores:   workspace.LoadIgnores(root),
		proposals: proposals,
	}
}

// ReleaseSession drops all per-session state.
func ReleaseSession(sessionID string) {
	if strings.TrimSpace(sessionID) == "" {
		return
	}
	sessionMu.Lock()
	delete(sessions, sessionID)
	sessionMu.Unlock()
}

// SessionRoot returns the workspace root bound to a session.
func SessionRoot(sessionID string) (workspace.Root, bool) {
	sessionMu.RLock()
	defer sessionMu.RUnlock()
	state, ok := sessions[sessionID]
	if !ok {
		return workspace.Root{}, false
	}
	return state.root, true
}

// currentSession resolves the session state for ctx.
func currentSession(ctx context.Context) (*sessionState, error) {
	sessionID := SessionIDFromContext(ctx)
	if sessionID == "" {
		return nil, ErrNoSession
	}
	sessionMu.RLock()
	defer sessionMu.RUnlock()
	state, ok := sessions[sessionID]
	if !ok {
		return nil, ErrNoSession
	}
	return state, nil
}
