package events

import (
	"fmt"

	"github.com/casualjim/faceoff/provider"
	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	sessionCreatedJSON = []byte(`{"type":"sessionCreated"}`)
	modelStatusJSON    = []byte(`{"type":"modelStatus"}`)
	modelChunkJSON     = []byte(`{"type":"modelChunk"}`)
	modelCompleteJSON  = []byte(`{"type":"modelComplete"}`)
	modelErrorJSON     = []byte(`{"type":"modelError"}`)
	errorJSON          = []byte(`{"type":"error"}`)
)

// Event is the sum type of everything the orchestrator emits on a channel.
type Event interface {
	event()
}

// SessionCreated announces the id of a freshly persisted session. It is the
// first event of every successful comparison.
type SessionCreated struct {
	SessionID string          `json:"sessionId"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (SessionCreated) event() {}

// ModelStatus reports a status change for one model of a session.
type ModelStatus struct {
	SessionID string          `json:"sessionId"`
	Model     string          `json:"model"`
	Status    string          `json:"status"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (ModelStatus) event() {}

// ModelChunk relays one text delta for one model, in production order.
type ModelChunk struct {
	SessionID string          `json:"sessionId"`
	Model     string          `json:"model"`
	Chunk     string          `json:"chunk"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (ModelChunk) event() {}

// ModelComplete is the successful terminal event for one model.
type ModelComplete struct {
	SessionID string                     `json:"sessionId"`
	Model     string                     `json:"model"`
	Metrics   provider.CompletionMetrics `json:"metrics"`
	Timestamp strfmt.DateTime            `json:"timestamp,omitempty"`
}

func (ModelComplete) event() {}

// ModelError is the failing terminal event for one model. Sibling models
// are unaffected.
type ModelError struct {
	SessionID string          `json:"sessionId"`
	Model     string          `json:"model"`
	Err       string          `json:"error"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (ModelError) event() {}

// Error is a session-level failure (validation, session creation). It is
// never used for per-model stream failures.
type Error struct {
	Message   string          `json:"message"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Error) event() {}

// MarshalJSON implements custom JSON marshaling for SessionCreated.
func (e SessionCreated) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(sessionCreatedJSON, "sessionId", e.SessionID)
	if err != nil {
		return nil, err
	}
	return setTimestamp(result, e.Timestamp)
}

// UnmarshalJSON implements custom JSON unmarshaling for SessionCreated.
func (e *SessionCreated) UnmarshalJSON(data []byte) error {
	fields, err := requireFields(data, "sessionCreated", "sessionId")
	if err != nil {
		return err
	}
	e.SessionID = fields["sessionId"].String()
	return getTimestamp(data, &e.Timestamp)
}

// MarshalJSON implements custom JSON marshaling for ModelStatus.
func (e ModelStatus) MarshalJSON() ([]byte, error) {
	result, err := setModelFields(modelStatusJSON, e.SessionID, e.Model)
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetBytes(result, "status", e.Status)
	if err != nil {
		return nil, err
	}
	return setTimestamp(result, e.Timestamp)
}

// UnmarshalJSON implements custom JSON unmarshaling for ModelStatus.
func (e *ModelStatus) UnmarshalJSON(data []byte) error {
	fields, err := requireFields(data, "modelStatus", "sessionId", "model", "status")
	if err != nil {
		return err
	}
	e.SessionID = fields["sessionId"].String()
	e.Model = fields["model"].String()
	e.Status = fields["status"].String()
	return getTimestamp(data, &e.Timestamp)
}

// MarshalJSON implements custom JSON marshaling for ModelChunk.
func (e ModelChunk) MarshalJSON() ([]byte, error) {
	result, err := setModelFields(modelChunkJSON, e.SessionID, e.Model)
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetBytes(result, "chunk", e.Chunk)
	if err != nil {
		return nil, err
	}
	return setTimestamp(result, e.Timestamp)
}

// UnmarshalJSON implements custom JSON unmarshaling for ModelChunk.
func (e *ModelChunk) UnmarshalJSON(data []byte) error {
	fields, err := requireFields(data, "modelChunk", "sessionId", "model", "chunk")
	if err != nil {
		return err
	}
	e.SessionID = fields["sessionId"].String()
	e.Model = fields["model"].String()
	e.Chunk = fields["chunk"].String()
	return getTimestamp(data, &e.Timestamp)
}

// MarshalJSON implements custom JSON marshaling for ModelComplete.
func (e ModelComplete) MarshalJSON() ([]byte, error) {
	result, err := setModelFields(modelCompleteJSON, e.SessionID, e.Model)
	if err != nil {
		return nil, err
	}

	metrics, err := json.Marshal(e.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metrics: %w", err)
	}
	result, err = sjson.SetRawBytes(result, "metrics", metrics)
	if err != nil {
		return nil, err
	}
	return setTimestamp(result, e.Timestamp)
}

// UnmarshalJSON implements custom JSON unmarshaling for ModelComplete.
func (e *ModelComplete) UnmarshalJSON(data []byte) error {
	fields, err := requireFields(data, "modelComplete", "sessionId", "model", "metrics")
	if err != nil {
		return err
	}
	e.SessionID = fields["sessionId"].String()
	e.Model = fields["model"].String()
	if err := json.Unmarshal([]byte(fields["metrics"].Raw), &e.Metrics); err != nil {
		return fmt.Errorf("invalid metrics: %w", err)
	}
	return getTimestamp(data, &e.Timestamp)
}

// MarshalJSON implements custom JSON marshaling for ModelError.
func (e ModelError) MarshalJSON() ([]byte, error) {
	result, err := setModelFields(modelErrorJSON, e.SessionID, e.Model)
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetBytes(result, "error", e.Err)
	if err != nil {
		return nil, err
	}
	return setTimestamp(result, e.Timestamp)
}

// UnmarshalJSON implements custom JSON unmarshaling for ModelError.
func (e *ModelError) UnmarshalJSON(data []byte) error {
	fields, err := requireFields(data, "modelError", "sessionId", "model", "error")
	if err != nil {
		return err
	}
	e.SessionID = fields["sessionId"].String()
	e.Model = fields["model"].String()
	e.Err = fields["error"].String()
	return getTimestamp(data, &e.Timestamp)
}

// MarshalJSON implements custom JSON marshaling for Error.
func (e Error) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(errorJSON, "message", e.Message)
	if err != nil {
		return nil, err
	}
	return setTimestamp(result, e.Timestamp)
}

// UnmarshalJSON implements custom JSON unmarshaling for Error.
func (e *Error) UnmarshalJSON(data []byte) error {
	fields, err := requireFields(data, "error", "message")
	if err != nil {
		return err
	}
	e.Message = fields["message"].String()
	return getTimestamp(data, &e.Timestamp)
}

func setModelFields(base []byte, sessionID, model string) ([]byte, error) {
	result, err := sjson.SetBytes(base, "sessionId", sessionID)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(result, "model", model)
}

func setTimestamp(result []byte, ts strfmt.DateTime) ([]byte, error) {
	if ts.IsZero() {
		return result, nil
	}
	return sjson.SetBytes(result, "timestamp", ts.String())
}

func getTimestamp(data []byte, ts *strfmt.DateTime) error {
	raw := gjson.GetBytes(data, "timestamp")
	if !raw.Exists() {
		return nil
	}
	return ts.UnmarshalText([]byte(raw.String()))
}

// requireFields validates the "type" discriminator and extracts the named
// required fields from data.
func requireFields(data []byte, eventType string, names ...string) (map[string]gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", data)
	}

	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != eventType {
		return nil, fmt.Errorf("missing or invalid type, expected %q", eventType)
	}

	fields := make(map[string]gjson.Result, len(names))
	for _, name := range names {
		field := gjson.GetBytes(data, name)
		if !field.Exists() {
			return nil, fmt.Errorf("missing required field %q", name)
		}
		fields[name] = field
	}
	return fields, nil
}
