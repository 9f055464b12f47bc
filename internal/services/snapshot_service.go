package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"codepair/internal/models"
	"codepair/internal/utils"
	"codepair/internal/workspace"
)

// SnapshotService answers version-control questions about a workspace and
// owns the pre-edit snapshotter handed to the storage layer. All operations
// are read-only except the snapshots the Snapshotter itself commits.
type SnapshotService struct {
	bootCtx context.Context
	logger  *zap.Logger
}

func NewSnapshotService(logger *zap.Logger) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotService{logger: logger}
}

func (g *SnapshotService) Startup(ctx context.Context) {
	g.bootCtx = ctx
}

// startupCtx bounds long git operations by the process lifetime.
func (g *SnapshotService) startupCtx() context.Context {
	if g.bootCtx != nil {
		return g.bootCtx
	}
	return context.Background()
}

// Snapshotter builds the per-workspace snapshotter the storage layer invokes
// before the first write of a review round. Returns nil when the root is not
// a git repository; the storage layer then applies edits without snapshots.
func (g *SnapshotService) Snapshotter(root workspace.Root) *workspace.Snapshotter {
	if !utils.HasGitRepo(root.Base()) {
		return nil
	}
	return workspace.NewSnapshotter(root.Base(), g.logger)
}

// Open opens the repository at path without validating its state.
func (g *SnapshotService) Open(path string) (*git.Repository, error) {
	return git.PlainOpen(path)
}

// ValidateRepository reports whether repoPath holds a git repository with a
// readable HEAD.
func (g *SnapshotService) ValidateRepository(repoPath string) error {
	if repoPath == "" {
		return errors.New("repository path is required")
	}
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("not a git repository: %w", err)
	}
	if _, err := repo.Head(); err != nil {
		return fmt.Errorf("repository has no readable HEAD: %w", err)
	}
	return nil
}

// LatestCommit resolves the hash HEAD points at.
func (g *SnapshotService) LatestCommit(repoPath string) (string, error) {
	if repoPath == "" {
		return "", errors.New("repository path is required")
	}
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("open repository %s: %w", repoPath, err)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// ListBranches returns all local branches with their tip commit and last
// commit date for an opened repository. The checked-out branch is marked.
func (g *SnapshotService) ListBranches(repo *git.Repository) ([]models.BranchInfo, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}

	iter, err := repo.Branches()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	head, _ := repo.Head()

	var branches []models.BranchInfo
	if err := iter.ForEach(func(ref *plumbing.Reference) error {
		commit, cErr := repo.CommitObject(ref.Hash())
		if cErr != nil {
			return cErr
		}
		branches = append(branches, models.BranchInfo{
			Name:           ref.Name().Short(),
			Commit:         ref.Hash().String()[:8],
			Head:           head != nil && ref.Name() == head.Name(),
			LastCommitDate: commit.Author.When,
		})
		return nil
	}); err != nil {
		return nil, err
	}

	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}

// ListBranchesByPath is ListBranches for a repository that is not open yet.
func (g *SnapshotService) ListBranchesByPath(repoPath string) ([]models.BranchInfo, error) {
	if repoPath == "" {
		return nil, errors.New("repository path is required")
	}
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", repoPath, err)
	}
	return g.ListBranches(repo)
}

// DiffBetweenCommits renders the patch between two commit hashes.
func (g *SnapshotService) DiffBetweenCommits(repo *git.Repository, from, to string) (string, error) {
	older, err := repo.CommitObject(plumbing.NewHash(from))
	if err != nil {
		return "", fmt.Errorf("resolve commit %s: %w", from, err)
	}
	newer, err := repo.CommitObject(plumbing.NewHash(to))
	if err != nil {
		return "", fmt.Errorf("resolve commit %s: %w", to, err)
	}

	patch, err := older.PatchContext(g.startupCtx(), newer)
	if err != nil {
		return "", fmt.Errorf("compute patch: %w", err)
	}

	var buf bytes.Buffer
	if err := patch.Encode(&buf); err != nil {
		return "", fmt.Errorf("encode patch: %w", err)
	}
	return buf.String(), nil
}

// DirtyFiles lists paths with uncommitted changes, so the shell can warn
// before a batch accept mixes agent edits with unrelated local work.
func (g *SnapshotService) DirtyFiles(repoPath string) ([]string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", repoPath, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("read worktree status: %w", err)
	}

	var paths []string
	for path, st := range status {
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}
