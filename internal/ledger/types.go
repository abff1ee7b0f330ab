package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EventID is the cursor of an indexed event.
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

type Event struct {
	ID                EventID                    `json:"id"`
	PackageID         string                     `json:"packageId"`
	TransactionModule string                     `json:"transactionModule"`
	Sender            string                     `json:"sender"`
	Type              string                     `json:"type"`
	ParsedJSON        map[string]json.RawMessage `json:"parsedJson"`
	TimestampMs       string                     `json:"timestampMs,omitempty"`
}

// StringField returns a string-valued field of the event payload.
func (e Event) StringField(name string) string {
	return rawString(e.ParsedJSON[name])
}

type EventQuery struct {
	MoveEventType string
	Cursor        *EventID
	Limit         int
	Descending    bool
}

type EventPage struct {
	Data        []Event  `json:"data"`
	NextCursor  *EventID `json:"nextCursor"`
	HasNextPage bool     `json:"hasNextPage"`
}

// ObjectContent is the decoded Move struct of an object.
type ObjectContent struct {
	DataType string                     `json:"dataType"`
	Type     string                     `json:"type"`
	Fields   map[string]json.RawMessage `json:"fields"`
}

type Object struct {
	ObjectID string          `json:"objectId"`
	Version  string          `json:"version"`
	Digest   string          `json:"digest"`
	Type     string          `json:"type"`
	Owner    json.RawMessage `json:"owner,omitempty"`
	Content  *ObjectContent  `json:"content,omitempty"`
}

// StringField returns a string-valued Move field, or "" if absent.
func (o *Object) StringField(name string) string {
	if o == nil || o.Content == nil {
		return ""
	}
	return rawString(o.Content.Fields[name])
}

// Uint64Field reads an integer Move field. Small integers arrive as JSON
// numbers, u64 and larger as decimal strings.
func (o *Object) Uint64Field(name string) (uint64, error) {
	if o == nil || o.Content == nil {
		return 0, fmt.Errorf("object has no content")
	}
	raw, ok := o.Content.Fields[name]
	if !ok {
		return 0, fmt.Errorf("object %s has no field %q", o.ObjectID, name)
	}
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("object %s field %q is not an integer: %w", o.ObjectID, name, err)
	}
	return v, nil
}

// DynamicFieldName identifies a dynamic field by its key type and value.
type DynamicFieldName struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// IDKey builds the name of a field keyed by an object ID.
func IDKey(id string) DynamicFieldName {
	return DynamicFieldName{Type: "0x2::object::ID", Value: id}
}

type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s ExecutionStatus) Failed() bool {
	return s.Status == "failure"
}

type Effects struct {
	Status ExecutionStatus `json:"status"`
}

// ObjectChange is one entry of a transaction's object-change list.
type ObjectChange struct {
	Type       string `json:"type"`
	Sender     string `json:"sender,omitempty"`
	ObjectType string `json:"objectType,omitempty"`
	ObjectID   string `json:"objectId,omitempty"`
	Version    string `json:"version,omitempty"`
	Digest     string `json:"digest,omitempty"`
}

type TransactionBlock struct {
	Digest        string         `json:"digest"`
	Effects       *Effects       `json:"effects,omitempty"`
	ObjectChanges []ObjectChange `json:"objectChanges,omitempty"`
	Events        []Event        `json:"events,omitempty"`
	TimestampMs   string         `json:"timestampMs,omitempty"`
}

// Created returns every created object change.
func (t *TransactionBlock) Created() []ObjectChange {
	var out []ObjectChange
	for _, ch := range t.ObjectChanges {
		if ch.Type == "created" {
			out = append(out, ch)
		}
	}
	return out
}

// CreatedOfType returns the created object changes whose fully qualified
// type equals objectType. Hex addresses compare case-insensitively.
func (t *TransactionBlock) CreatedOfType(objectType string) []ObjectChange {
	var out []ObjectChange
	for _, ch := range t.Created() {
		if strings.EqualFold(ch.ObjectType, objectType) {
			out = append(out, ch)
		}
	}
	return out
}

// EventsOfType returns the emitted events of exactly eventType.
func (t *TransactionBlock) EventsOfType(eventType string) []Event {
	var out []Event
	for _, ev := range t.Events {
		if strings.EqualFold(ev.Type, eventType) {
			out = append(out, ev)
		}
	}
	return out
}

type TransactionFilter struct {
	ChangedObject string `json:"ChangedObject,omitempty"`
	InputObject   string `json:"InputObject,omitempty"`
}

type TransactionPage struct {
	Data        []TransactionBlock `json:"data"`
	NextCursor  *string            `json:"nextCursor"`
	HasNextPage bool               `json:"hasNextPage"`
}

type DevInspectResult struct {
	Effects Effects `json:"effects"`
	Events  []Event `json:"events,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Failure returns the abort text of a failed inspection, or "".
func (r *DevInspectResult) Failure() string {
	if r.Error != "" {
		return r.Error
	}
	if r.Effects.Status.Failed() {
		return r.Effects.Status.Error
	}
	return ""
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
