package workspace

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"codepair/internal/events"
	"codepair/internal/review"
)

var (
	// ErrBinaryFile reports a file the engine refuses to stage for review.
	ErrBinaryFile = errors.New("not a text file")
	// ErrFileExists reports a create target that is already present.
	ErrFileExists = errors.New("file already exists")
	// ErrBadCapability reports a write token this store did not issue.
	ErrBadCapability = errors.New("write capability not issued by this workspace")
	// ErrModifiedExternally reports a file whose content changed between
	// proposal and acceptance. The write is refused; the edit must be
	// re-proposed against the new content.
	ErrModifiedExternally = errors.New("file changed outside the review")
)

const defaultFileMode fs.FileMode = 0o644

// capability is the token issued by Resolve and Create. It pins the absolute
// path and a fingerprint of the content the proposal was computed against,
// so redeeming it can detect a concurrent external change.
type capability struct {
	path        string
	fingerprint string
}

// Store is the storage collaborator for the review engine. It reads content
// snapshots at proposal time and performs the physical writes on acceptance.
// All paths are confined to the workspace root.
type Store struct {
	root   Root
	snaps  *Snapshotter
	logger *zap.Logger
}

// NewStore wires a store over root. snaps may be nil when snapshotting is
// disabled (e.g. the root is not a git repository).
func NewStore(root Root, snaps *Snapshotter, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{root: root, snaps: snaps, logger: logger}
}

// Root returns the workspace root the store operates on.
func (s *Store) Root() Root { return s.root }

// Resolve fetches the current content of path and issues the capability that
// authorizes writing the projected result back. Missing files, directories,
// and binary content are resolution errors; the caller skips the instruction.
func (s *Store) Resolve(path string) (review.ResolvedFile, error) {
	abs, err := s.root.Resolve(path)
	if err != nil {
		return review.ResolvedFile{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return review.ResolvedFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return review.ResolvedFile{}, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return review.ResolvedFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	if isBinary(data) {
		return review.ResolvedFile{}, fmt.Errorf("%s: %w", path, ErrBinaryFile)
	}
	return review.ResolvedFile{
		Content:    string(data),
		Capability: capability{path: abs, fingerprint: fingerprint(data)},
	}, nil
}

// Write redeems a capability issued by this store. The file on disk must
// still match the fingerprint captured at proposal time; any external change
// (including deletion) refuses the write with ErrModifiedExternally.
func (s *Store) Write(ctx context.Context, cap review.WriteCapability, content string) error {
	token, ok := cap.(capability)
	if !ok {
		return ErrBadCapability
	}

	current, err := os.ReadFile(token.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s was removed: %w", s.root.Rel(token.path), ErrModifiedExternally)
		}
		return fmt.Errorf("read %s: %w", s.root.Rel(token.path), err)
	}
	if fingerprint(current) != token.fingerprint {
		return fmt.Errorf("%s: %w", s.root.Rel(token.path), ErrModifiedExternally)
	}

	s.ensureSnapshot(ctx)

	mode := defaultFileMode
	if info, err := os.Stat(token.path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(token.path, []byte(content), mode); err != nil {
		return fmt.Errorf("write %s: %w", s.root.Rel(token.path), err)
	}
	s.logger.Debug("wrote file", zap.String("file", s.root.Rel(token.path)))
	return nil
}

// Create materializes a new file and returns the capability for it. The
// target must not exist; parent directories are created as needed.
func (s *Store) Create(ctx context.Context, path, content string) (review.WriteCapability, error) {
	abs, err := s.root.Resolve(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrFileExists)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	s.ensureSnapshot(ctx)

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create parent directories for %s: %w", path, err)
	}
	data := []byte(content)
	if err := os.WriteFile(abs, data, defaultFileMode); err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	s.logger.Debug("created file", zap.String("file", s.root.Rel(abs)))
	return capability{path: abs, fingerprint: fingerprint(data)}, nil
}

// ensureSnapshot asks the snapshotter to capture the working tree before the
// first write of a round. Snapshot failure is reported as a warning and never
// blocks the write.
func (s *Store) ensureSnapshot(ctx context.Context) {
	if s.snaps == nil {
		return
	}
	if err := s.snaps.Ensure(ctx); err != nil {
		s.logger.Warn("workspace snapshot failed", zap.Error(err))
		events.Emit(ctx, events.TopicSnapshot, events.NewWarn(
			fmt.Sprintf("Could not snapshot workspace before writing: %v", err)))
	}
}

func fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// isBinary applies the same heuristic the read tool uses: a NUL byte or a
// high ratio of non-printable bytes in the first 4 KiB marks the content as
// binary.
func isBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sample := data
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	nonPrintable := 0
	for _, b := range sample {
		if b == 0x00 {
			return true
		}
		if b < 9 || (b > 13 && b < 32) {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(sample)) > 0.3
}

// DisplayPath normalizes a possibly absolute path for transcripts and edit
// records: root-relative slash form when under the root.
func (s *Store) DisplayPath(path string) string {
	if filepath.IsAbs(path) {
		return s.root.Rel(path)
	}
	return filepath.ToSlash(strings.TrimSpace(path))
}
