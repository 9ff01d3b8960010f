package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	Unknown     = "unknown"
	NoRequestID = "no_request_id"
)

// ChangeRecord is one entry of the object change log. Optional fields are
// left empty by decoding; Normalize fills in display defaults.
type ChangeRecord struct {
	ID             int64
	Time           string
	Username       string
	Action         string
	ObjectType     string
	ObjectID       int64
	ObjectRepr     string
	RequestID      string
	PrechangeData  map[string]any
	PostchangeData map[string]any
}

func (c ChangeRecord) Normalize() ChangeRecord {
	if c.Time == "" {
		c.Time = Unknown
	}
	if c.Username == "" {
		c.Username = Unknown
	}
	if c.Action == "" {
		c.Action = Unknown
	}
	if c.ObjectType == "" {
		c.ObjectType = Unknown
	}
	if c.ObjectRepr == "" {
		c.ObjectRepr = Unknown
	}
	if c.RequestID == "" {
		c.RequestID = NoRequestID
	}
	return c
}

// ParsedTime returns the record time, or the zero time when it does not parse.
func (c ChangeRecord) ParsedTime() time.Time {
	t, err := ParseTimestamp(c.Time)
	if err != nil {
		return time.Time{}
	}
	return t
}

type wireChange struct {
	ID                json.RawMessage `json:"id"`
	Time              json.RawMessage `json:"time"`
	User              json.RawMessage `json:"user"`
	UserName          json.RawMessage `json:"user_name"`
	Action            json.RawMessage `json:"action"`
	ChangedObjectType json.RawMessage `json:"changed_object_type"`
	ChangedObjectID   json.RawMessage `json:"changed_object_id"`
	ObjectRepr        json.RawMessage `json:"object_repr"`
	RequestID         json.RawMessage `json:"request_id"`
	PrechangeData     map[string]any  `json:"prechange_data"`
	PostchangeData    map[string]any  `json:"postchange_data"`
}

// UnmarshalJSON accepts both the nested and the flattened shapes the change
// log has used over time: action as {"value": ...} or a bare string, user as
// {"username": ...}, a bare string or the flat user_name field, and
// changed_object_type as a dotted string or a content type object.
func (c *ChangeRecord) UnmarshalJSON(data []byte) error {
	var w wireChange
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	username := flexString(w.User, "username", "name", "display")
	if username == "" {
		username = flexString(w.UserName)
	}

	*c = ChangeRecord{
		ID:             flexInt(w.ID),
		Time:           flexString(w.Time),
		Username:       username,
		Action:         flexString(w.Action, "value"),
		ObjectType:     objectTypeName(w.ChangedObjectType),
		ObjectID:       flexInt(w.ChangedObjectID),
		ObjectRepr:     flexString(w.ObjectRepr),
		RequestID:      flexString(w.RequestID),
		PrechangeData:  w.PrechangeData,
		PostchangeData: w.PostchangeData,
	}
	return nil
}

// flexString returns raw as a string when it is a JSON scalar, or the first
// non-empty value found under keys when it is an object.
func flexString(raw json.RawMessage, keys ...string) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return ""
		}
		for _, key := range keys {
			if v := flexString(obj[key]); v != "" {
				return v
			}
		}
		return ""
	case '[':
		return ""
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return ""
		}
		return n.String()
	}
}

func flexInt(raw json.RawMessage) int64 {
	s := flexString(raw, "id", "value")
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func objectTypeName(raw json.RawMessage) string {
	if name := flexString(raw, "value", "name"); name != "" {
		return name
	}
	app := flexString(raw, "app_label")
	model := flexString(raw, "model")
	if app == "" || model == "" {
		return ""
	}
	return app + "." + model
}

// ParseTimestamp accepts RFC 3339 timestamps with or without fractional
// seconds, a timestamp without zone (taken as UTC) and a bare date.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", time.DateOnly}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
