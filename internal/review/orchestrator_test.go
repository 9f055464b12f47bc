package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"codepair/internal/edit"
)

type storageMock struct {
	WriteFunc  func(ctx context.Context, cap WriteCapability, content string) error
	CreateFunc func(ctx context.Context, path, content string) (WriteCapability, error)

	writes  []string
	creates []string
}

func (m *storageMock) Write(ctx context.Context, cap WriteCapability, content string) error {
	m.writes = append(m.writes, fmt.Sprint(cap))
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, cap, content)
	}
	return nil
}

func (m *storageMock) Create(ctx context.Context, path, content string) (WriteCapability, error) {
	m.creates = append(m.creates, path)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, path, content)
	}
	return "cap:" + path, nil
}

func staticResolver(files map[string]string) ContentResolver {
	return func(path string) (ResolvedFile, error) {
		content, ok := files[path]
		if !ok {
			return ResolvedFile{}, fmt.Errorf("open %s: no such file", path)
		}
		return ResolvedFile{Content: content, Capability: "cap:" + path}, nil
	}
}

func insertions(paths ...string) []edit.Instruction {
	instrs := make([]edit.Instruction, 0, len(paths))
	for _, p := range paths {
		instrs = append(instrs, edit.Instruction{
			FilePath: p, Action: edit.ActionInsert, Code: "x", InsertAtLine: 2,
		})
	}
	return instrs
}

func TestAddEditsFromInstructionsProjectsAndActivates(t *testing.T) {
	o := NewOrchestrator(&storageMock{}, nil, nil)
	files := map[string]string{"a.go": "1\n2\n3"}

	added := o.AddEditsFromInstructions(context.Background(), insertions("a.go"), staticResolver(files), "insert a marker")
	assert.Equal(t, 1, added)

	s := o.State()
	assert.Len(t, s.Edits, 1)
	e := s.Edits[0]
	assert.Equal(t, "1\nx\n2\n3", e.ProposedContent)
	assert.Equal(t, "1\n2\n3", e.OriginalContent)
	assert.Equal(t, StatusPending, e.Status)
	assert.Equal(t, "insert a marker", e.Explanation)
	assert.Equal(t, e.ID, s.ActiveEditID, "first pending edit becomes active")
	assert.False(t, s.Processing, "processing flag must reset")
}

func TestAddEditsPartialResolutionFailure(t *testing.T) {
	o := NewOrchestrator(&storageMock{}, nil, nil)
	files := map[string]string{"a.go": "1", "c.go": "3"}

	added := o.AddEditsFromInstructions(context.Background(), insertions("a.go", "missing.go", "c.go"), staticResolver(files), "")
	assert.Equal(t, 2, added, "one failed resolution must not abort the batch")

	s := o.State()
	var paths []string
	for _, e := range s.Edits {
		paths = append(paths, e.FilePath)
	}
	assert.Equal(t, []string{"a.go", "c.go"}, paths)
}

func TestAddEditsCreateFileSkipsResolver(t *testing.T) {
	o := NewOrchestrator(&storageMock{}, nil, nil)
	resolver := func(path string) (ResolvedFile, error) {
		t.Fatalf("resolver must not be called for create_file, got %s", path)
		return ResolvedFile{}, nil
	}

	instrs := []edit.Instruction{{FilePath: "new.go", Action: edit.ActionCreateFile, Code: "package new\n"}}
	added := o.AddEditsFromInstructions(context.Background(), instrs, resolver, "")
	assert.Equal(t, 1, added)

	e := o.State().Edits[0]
	assert.Equal(t, "", e.OriginalContent)
	assert.Equal(t, "package new\n", e.ProposedContent)
	assert.Nil(t, e.Capability)
}

func TestAcceptEditWritesThroughCapability(t *testing.T) {
	storage := &storageMock{}
	var applied []PendingEdit
	o := NewOrchestrator(storage, func(e PendingEdit) { applied = append(applied, e) }, nil)
	files := map[string]string{"a.go": "1\n2"}
	o.AddEditsFromInstructions(context.Background(), insertions("a.go"), staticResolver(files), "")

	id := o.State().Edits[0].ID
	err := o.AcceptEdit(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, []string{"cap:a.go"}, storage.writes)
	assert.Empty(t, storage.creates)

	s := o.State()
	assert.Equal(t, StatusAccepted, s.Edits[0].Status)
	if assert.Len(t, applied, 1) {
		assert.Equal(t, id, applied[0].ID)
		assert.Equal(t, StatusAccepted, applied[0].Status)
	}
}

func TestAcceptEditCreateFile(t *testing.T) {
	storage := &storageMock{}
	o := NewOrchestrator(storage, nil, nil)
	instrs := []edit.Instruction{{FilePath: "dir/new.go", Action: edit.ActionCreateFile, Code: "package dir\n"}}
	o.AddEditsFromInstructions(context.Background(), instrs, nil, "")

	id := o.State().Edits[0].ID
	err := o.AcceptEdit(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, []string{"dir/new.go"}, storage.creates)
	assert.Empty(t, storage.writes)

	e, _ := o.State().Edit(id)
	assert.Equal(t, StatusAccepted, e.Status)
	assert.Equal(t, "cap:dir/new.go", e.Capability, "creation capability must be bound to the record")
}

func TestAcceptEditWithoutCapability(t *testing.T) {
	storage := &storageMock{}
	o := NewOrchestrator(storage, nil, nil)
	resolver := func(path string) (ResolvedFile, error) {
		return ResolvedFile{Content: "body"}, nil // no capability: outside the working set
	}
	o.AddEditsFromInstructions(context.Background(), insertions("loose.go"), resolver, "")

	id := o.State().Edits[0].ID
	assert.NoError(t, o.AcceptEdit(context.Background(), id))
	assert.Empty(t, storage.writes, "no capability means no physical write")
	e, _ := o.State().Edit(id)
	assert.Equal(t, StatusAccepted, e.Status)
}

func TestAcceptEditWriteFailureLeavesPending(t *testing.T) {
	storage := &storageMock{
		WriteFunc: func(ctx context.Context, cap WriteCapability, content string) error {
			return errors.New("disk full")
		},
	}
	var applied []PendingEdit
	o := NewOrchestrator(storage, func(e PendingEdit) { applied = append(applied, e) }, nil)
	files := map[string]string{"a.go": "1\n2"}
	o.AddEditsFromInstructions(context.Background(), insertions("a.go"), staticResolver(files), "")

	id := o.State().Edits[0].ID
	err := o.AcceptEdit(context.Background(), id)
	assert.Error(t, err)

	s := o.State()
	assert.Equal(t, StatusPending, s.Edits[0].Status, "a failed write must never mark the edit accepted")
	assert.Contains(t, s.Err, "a.go")
	assert.Empty(t, applied)

	// The error clears at the start of the next mutating operation.
	storage.WriteFunc = nil
	assert.NoError(t, o.AcceptEdit(context.Background(), id))
	assert.Equal(t, "", o.State().Err)
}

func TestAcceptEditGuards(t *testing.T) {
	o := NewOrchestrator(&storageMock{}, nil, nil)
	files := map[string]string{"a.go": "1"}
	o.AddEditsFromInstructions(context.Background(), insertions("a.go"), staticResolver(files), "")
	id := o.State().Edits[0].ID

	err := o.AcceptEdit(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrEditNotFound)

	assert.NoError(t, o.AcceptEdit(context.Background(), id))
	err = o.AcceptEdit(context.Background(), id)
	assert.ErrorIs(t, err, ErrEditNotPending)

	err = o.RejectEdit(id)
	assert.ErrorIs(t, err, ErrEditNotPending)
	e, _ := o.State().Edit(id)
	assert.Equal(t, StatusAccepted, e.Status, "a resolved status never flips")
}

func TestAcceptAllCountsIndependentFailures(t *testing.T) {
	storage := &storageMock{
		WriteFunc: func(ctx context.Context, cap WriteCapability, content string) error {
			if strings.Contains(fmt.Sprint(cap), "b.go") {
				return errors.New("permission denied")
			}
			return nil
		},
	}
	o := NewOrchestrator(storage, nil, nil)
	files := map[string]string{"a.go": "1\n2", "b.go": "1\n2", "c.go": "1\n2"}
	o.AddEditsFromInstructions(context.Background(), insertions("a.go", "b.go", "c.go"), staticResolver(files), "")

	res := o.AcceptAll(context.Background())
	assert.Equal(t, BatchResult{Success: 2, Failed: 1}, res)

	s := o.State()
	assert.Equal(t, 2, s.AcceptedCount())
	assert.Equal(t, 1, s.PendingCount())
	assert.Contains(t, s.Err, "b.go")
}

func TestAcceptAllSkipsAlreadyResolved(t *testing.T) {
	storage := &storageMock{}
	o := NewOrchestrator(storage, nil, nil)
	files := map[string]string{"a.go": "1", "b.go": "2"}
	o.AddEditsFromInstructions(context.Background(), insertions("a.go", "b.go"), staticResolver(files), "")

	assert.NoError(t, o.RejectEdit(o.State().Edits[0].ID))
	res := o.AcceptAll(context.Background())
	assert.Equal(t, BatchResult{Success: 1, Failed: 0}, res)
	assert.Len(t, storage.writes, 1)
}

func TestRejectActiveEditAdvancesSelection(t *testing.T) {
	o := NewOrchestrator(&storageMock{}, nil, nil)
	files := map[string]string{"a.go": "1", "b.go": "2", "c.go": "3"}
	o.AddEditsFromInstructions(context.Background(), insertions("a.go", "b.go", "c.go"), staticResolver(files), "")

	s := o.State()
	first, second := s.Edits[0].ID, s.Edits[1].ID
	assert.Equal(t, first, s.ActiveEditID)

	assert.NoError(t, o.RejectEdit(first))
	s = o.State()
	assert.Equal(t, second, s.ActiveEditID, "selection must move to the next pending edit")

	active, ok := s.Edit(s.ActiveEditID)
	assert.True(t, ok)
	assert.Equal(t, StatusPending, active.Status)
}

func TestSelectionNeverRestsOnResolvedWhilePendingRemains(t *testing.T) {
	o := NewOrchestrator(&storageMock{}, nil, nil)
	files := map[string]string{"a.go": "1", "b.go": "2", "c.go": "3"}
	o.AddEditsFromInstructions(context.Background(), insertions("a.go", "b.go", "c.go"), staticResolver(files), "")

	ids := make([]string, 3)
	for i, e := range o.State().Edits {
		ids[i] = e.ID
	}

	// Resolve the middle edit while the first is selected: selection stays.
	assert.NoError(t, o.AcceptEdit(context.Background(), ids[1]))
	assert.Equal(t, ids[0], o.State().ActiveEditID)

	// Resolve the selected edit: selection wraps past the accepted one.
	assert.NoError(t, o.RejectEdit(ids[0]))
	assert.Equal(t, ids[2], o.State().ActiveEditID)

	// Resolve the last pending edit: nothing left to select.
	assert.NoError(t, o.AcceptEdit(context.Background(), ids[2]))
	assert.Equal(t, "", o.State().ActiveEditID)
}

func TestClearCompletedKeepsPendingOnly(t *testing.T) {
	o := NewOrchestrator(&storageMock{}, nil, nil)
	files := map[string]string{"a.go": "1", "b.go": "2", "c.go": "3"}
	o.AddEditsFromInstructions(context.Background(), insertions("a.go", "b.go", "c.go"), staticResolver(files), "")

	ids := make([]string, 3)
	for i, e := range o.State().Edits {
		ids[i] = e.ID
	}
	assert.NoError(t, o.AcceptEdit(context.Background(), ids[0]))
	o.RejectAll()
	o.ClearCompleted()

	assert.Empty(t, o.State().Edits)
	assert.Equal(t, "", o.State().ActiveEditID)
}
