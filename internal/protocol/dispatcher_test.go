package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder counts every callback and remembers the latest payloads.
type recorder struct {
	starts       []TurnStart
	fragments    []string
	codeActions  []CodeActionResult
	debugs       []DebugResult
	workflows    []WorkflowResult
	explanations []ExplanationResult
	flats        []CompletionFlat
	richs        []CompletionRich
	failures     []ProtocolError
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		TurnStarted: func(s TurnStart) { r.starts = append(r.starts, s) },
		Fragment:    func(t string) { r.fragments = append(r.fragments, t) },
		CodeAction:  func(m CodeActionResult) { r.codeActions = append(r.codeActions, m) },
		Debug:       func(m DebugResult) { r.debugs = append(r.debugs, m) },
		Workflow:    func(m WorkflowResult) { r.workflows = append(r.workflows, m) },
		Explanation: func(m ExplanationResult) { r.explanations = append(r.explanations, m) },
		DoneFlat:    func(m CompletionFlat) { r.flats = append(r.flats, m) },
		DoneRich:    func(m CompletionRich) { r.richs = append(r.richs, m) },
		TurnFailed:  func(m ProtocolError) { r.failures = append(r.failures, m) },
	}
}

func (r *recorder) total() int {
	return len(r.starts) + len(r.fragments) + len(r.codeActions) + len(r.debugs) +
		len(r.workflows) + len(r.explanations) + len(r.flats) + len(r.richs) + len(r.failures)
}

func TestDispatchFlatTurn(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec.handlers(), nil)

	d.Dispatch([]byte(`{"type":"action","action":"edit_file"}`))
	d.Dispatch([]byte(`{"type":"llm_chunk","text":"hel"}`))
	d.Dispatch([]byte(`{"type":"llm_chunk","text":"lo"}`))
	d.Dispatch([]byte(`{"type":"response_complete","text":"hello","action":"edit_file","code":"x := 1"}`))

	require.Len(t, rec.starts, 1)
	assert.Equal(t, GenerationFlat, rec.starts[0].Generation)
	assert.Equal(t, "edit_file", rec.starts[0].Action)

	assert.Equal(t, []string{"hel", "lo"}, rec.fragments, "fragments arrive in order, each once")

	require.Len(t, rec.flats, 1)
	assert.Equal(t, CompletionFlat{Text: "hello", Action: "edit_file", Code: "x := 1"}, rec.flats[0])
	assert.Empty(t, rec.richs)
	assert.Equal(t, 4, rec.total(), "exactly one callback per message")
}

func TestDispatchRichTurn(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec.handlers(), nil)

	d.Dispatch([]byte(`{"type":"intent","intent":"code_edit"}`))
	d.Dispatch([]byte(`{"type":"agent_result","result_type":"code_action",` +
		`"edits":[{"file_path":"a.go","action":"insert","code":"x","insert_at_line":2}],` +
		`"summary":"one insert","explanation":"adds a marker"}`))
	d.Dispatch([]byte(`{"type":"response_complete","intent":"code_edit","text":"done"}`))

	require.Len(t, rec.starts, 1)
	assert.Equal(t, GenerationRich, rec.starts[0].Generation)
	assert.Equal(t, "code_edit", rec.starts[0].Intent)

	require.Len(t, rec.codeActions, 1)
	require.Len(t, rec.codeActions[0].Edits, 1)
	in := rec.codeActions[0].Edits[0]
	assert.Equal(t, "a.go", in.FilePath)
	assert.Equal(t, 2, in.InsertAtLine)

	require.Len(t, rec.richs, 1)
	assert.Equal(t, "code_edit", rec.richs[0].Intent)
	assert.Empty(t, rec.flats)
}

func TestCompletionShapeDisambiguation(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec.handlers(), nil)

	// Same dispatcher, same wire type, two shapes.
	d.Dispatch([]byte(`{"type":"response_complete","intent":"debug","text":"found it","error":"oops"}`))
	d.Dispatch([]byte(`{"type":"response_complete","text":"plain","action":"explain","code":""}`))

	require.Len(t, rec.richs, 1)
	assert.Equal(t, "debug", rec.richs[0].Intent)
	assert.Equal(t, "oops", rec.richs[0].Err)

	require.Len(t, rec.flats, 1)
	assert.Equal(t, "plain", rec.flats[0].Text)
	assert.Equal(t, "explain", rec.flats[0].Action)

	// Presence decides, not truthiness: an empty intent is still rich.
	d.Dispatch([]byte(`{"type":"response_complete","intent":"","text":"edge"}`))
	require.Len(t, rec.richs, 2)
	assert.Equal(t, "", rec.richs[1].Intent)
}

func TestAgentResultRouting(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec.handlers(), nil)

	d.Dispatch([]byte(`{"type":"agent_result","result_type":"debug_result",` +
		`"diagnosis":"nil map write","findings":["f1","f2"],"fix_suggestion":"make the map"}`))
	d.Dispatch([]byte(`{"type":"agent_result","result_type":"workflow_result",` +
		`"steps":[{"name":"build","status":"ok","detail":""}],"summary":"1 step"}`))
	d.Dispatch([]byte(`{"type":"agent_result","result_type":"explanation","text":"because"}`))
	d.Dispatch([]byte(`{"type":"agent_result","result_type":"chat","text":"hi"}`))

	require.Len(t, rec.debugs, 1)
	assert.Equal(t, "nil map write", rec.debugs[0].Diagnosis)
	assert.Equal(t, []string{"f1", "f2"}, rec.debugs[0].Findings)

	require.Len(t, rec.workflows, 1)
	assert.Equal(t, "build", rec.workflows[0].Steps[0].Name)

	require.Len(t, rec.explanations, 2, "explanation and chat share one callback")
	assert.Equal(t, "because", rec.explanations[0].Text)
	assert.Equal(t, "hi", rec.explanations[1].Text)
}

func TestProtocolErrorTerminatesViaCallback(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec.handlers(), nil)

	d.Dispatch([]byte(`{"type":"error","error":"model unavailable"}`))

	require.Len(t, rec.failures, 1)
	assert.Equal(t, "model unavailable", rec.failures[0].Message)
	assert.Equal(t, 1, rec.total())
}

func TestUnknownAndMalformedAreSilentlyDropped(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec.handlers(), nil)

	d.Dispatch([]byte(`{"type":"hologram"}`))
	d.Dispatch([]byte(`{"type":"agent_result","result_type":"interpretive_dance"}`))
	d.Dispatch([]byte(`{not even json`))
	d.Dispatch([]byte(``))

	assert.Equal(t, 0, rec.total(), "unknown and malformed messages fire no callback")
}

func TestNilHandlersAreSafe(t *testing.T) {
	d := NewDispatcher(Handlers{}, nil)
	d.Dispatch([]byte(`{"type":"llm_chunk","text":"x"}`))
	d.Dispatch([]byte(`{"type":"error","error":"e"}`))
}

func TestEncodeDecodeAgreeOnEveryVariant(t *testing.T) {
	variants := []Message{
		TurnStart{Generation: GenerationFlat, Action: "edit_file"},
		TurnStart{Generation: GenerationRich, Intent: "code_edit"},
		Fragment{Text: "chunk"},
		CodeActionResult{Summary: "s", Explanation: "e"},
		DebugResult{Diagnosis: "d", Findings: []string{"x"}, FixSuggestion: "f"},
		WorkflowResult{Steps: []WorkflowStep{{Name: "n", Status: "ok"}}, Summary: "s"},
		ExplanationResult{Text: "t"},
		CompletionFlat{Text: "t", Action: "a", Code: "c"},
		CompletionRich{Intent: "i", Text: "t", Err: "boom"},
		ProtocolError{Message: "m"},
		UserMessage{Text: "u"},
	}

	for _, v := range variants {
		raw, err := Encode(v)
		require.NoError(t, err, "%T", v)
		back, err := Decode(raw)
		require.NoError(t, err, "%T", v)
		assert.IsType(t, v, back)
	}
}
