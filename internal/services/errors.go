package services

import "strings"

// Session errors carry a machine-readable prefix of the form
// "ERR_CODE:detail" so the shell can map them to actionable messages
// without string-matching full error text.
const (
	CodeNoAPIKey            = "ERR_NO_API_KEY"
	CodeModelNotFound       = "ERR_MODEL_NOT_FOUND"
	CodeModelDisabled       = "ERR_MODEL_DISABLED"
	CodeUnsupportedProvider = "ERR_UNSUPPORTED_PROVIDER"
	CodeSessionExists       = "ERR_SESSION_EXISTS"
	CodeSessionNotFound     = "ERR_SESSION_NOT_FOUND"
	CodeWorkspaceInvalid    = "ERR_WORKSPACE_INVALID"
	CodeAgentUnreachable    = "ERR_AGENT_UNREACHABLE"
)

// ErrorCode extracts the ERR_ prefix from err, or "" when err carries none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "ERR_") {
		return ""
	}
	if idx := strings.IndexByte(msg, ':'); idx > 0 {
		return msg[:idx]
	}
	return msg
}

// ErrorDetail returns the text after the ERR_ prefix, or the full message
// when err carries no code.
func ErrorDetail(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "ERR_") {
		return msg
	}
	if idx := strings.IndexByte(msg, ':'); idx >= 0 && idx+1 < len(msg) {
		return msg[idx+1:]
	}
	return msg
}

// FriendlyMessage maps a session error to a message fit for the status
// line. Unknown errors pass through unchanged.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	switch ErrorCode(err) {
	case CodeNoAPIKey:
		return "No API key stored for " + ErrorDetail(err) + ". Add one with: codepair keys set " + ErrorDetail(err)
	case CodeModelNotFound:
		return "Model not found: " + ErrorDetail(err)
	case CodeModelDisabled:
		return "Model is disabled in settings: " + ErrorDetail(err)
	case CodeUnsupportedProvider:
		return "Unsupported provider: " + ErrorDetail(err)
	case CodeSessionExists:
		return "Session already open: " + ErrorDetail(err)
	case CodeSessionNotFound:
		return "No such session: " + ErrorDetail(err)
	case CodeWorkspaceInvalid:
		return "Cannot open workspace: " + ErrorDetail(err)
	case CodeAgentUnreachable:
		return "Cannot reach agent: " + ErrorDetail(err)
	default:
		return err.Error()
	}
}
