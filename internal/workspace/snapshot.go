package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"codepair/internal/events"
)

const snapshotMessage = "codepair: workspace snapshot before applying edits"

// Snapshotter captures the working tree as a git commit before the first
// applied edit of a review round, so an accepted batch can always be unwound
// with normal git tooling. One snapshot per round; MarkRound starts the next.
type Snapshotter struct {
	root   string
	logger *zap.Logger

	mu    sync.Mutex
	taken bool
	last  plumbing.Hash
}

func NewSnapshotter(root string, logger *zap.Logger) *Snapshotter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshotter{root: root, logger: logger}
}

// MarkRound resets the snapshotter: the next Ensure call captures again.
// Called when a new batch of proposals opens a review round.
func (s *Snapshotter) MarkRound() {
	s.mu.Lock()
	s.taken = false
	s.mu.Unlock()
}

// LastSnapshot returns the commit hash of the most recent snapshot, if any.
func (s *Snapshotter) LastSnapshot() (plumbing.Hash, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, !s.last.IsZero()
}

// Ensure commits the current working tree once per round. A clean tree only
// records HEAD. Errors are returned for the caller to degrade to a warning;
// the round is still marked so one broken repository does not warn on every
// write.
func (s *Snapshotter) Ensure(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken {
		return nil
	}
	s.taken = true

	repo, err := git.PlainOpen(s.root)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("worktree status: %w", err)
	}

	if status.IsClean() {
		if head, err := repo.Head(); err == nil {
			s.last = head.Hash()
		}
		s.logger.Debug("worktree clean, snapshot is HEAD", zap.String("hash", s.last.String()))
		return nil
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("stage working tree: %w", err)
	}
	hash, err := wt.Commit(snapshotMessage, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "codepair",
			Email: "codepair@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	s.last = hash
	s.logger.Info("workspace snapshot taken", zap.String("hash", hash.String()))
	events.Emit(ctx, events.TopicSnapshot, events.NewInfo(
		fmt.Sprintf("Saved workspace snapshot %s", shortHash(hash))))
	return nil
}

func shortHash(h plumbing.Hash) string {
	s := h.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
