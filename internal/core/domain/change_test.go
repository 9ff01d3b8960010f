package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestChangeRecordDecodesNestedShape(t *testing.T) {
	raw := `{
		"id": 42,
		"time": "2026-10-16T08:15:00.123456Z",
		"user": {"id": 3, "username": "alice"},
		"user_name": "alice-old",
		"request_id": "r1",
		"action": {"value": "update", "label": "Updated"},
		"changed_object_type": "dcim.device",
		"changed_object_id": 17,
		"object_repr": "sw1",
		"prechange_data": {"status": "planned"},
		"postchange_data": {"status": "active"}
	}`

	var rec ChangeRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.ID != 42 || rec.ObjectID != 17 {
		t.Fatalf("unexpected ids: %+v", rec)
	}
	if rec.Username != "alice" {
		t.Fatalf("expected nested username to win, got %q", rec.Username)
	}
	if rec.Action != "update" {
		t.Fatalf("expected action update, got %q", rec.Action)
	}
	if rec.ObjectType != "dcim.device" || rec.ObjectRepr != "sw1" || rec.RequestID != "r1" {
		t.Fatalf("unexpected fields: %+v", rec)
	}
	if rec.PostchangeData["status"] != "active" {
		t.Fatalf("unexpected postchange data: %v", rec.PostchangeData)
	}
}

func TestChangeRecordDecodesFlatShape(t *testing.T) {
	raw := `{
		"time": "2026-10-16T08:15:00Z",
		"user_name": "bob",
		"action": "create",
		"changed_object_type": {"app_label": "ipam", "model": "ipaddress"},
		"changed_object_id": "9"
	}`

	var rec ChangeRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Username != "bob" {
		t.Fatalf("expected flat username, got %q", rec.Username)
	}
	if rec.Action != "create" {
		t.Fatalf("expected bare action string, got %q", rec.Action)
	}
	if rec.ObjectType != "ipam.ipaddress" {
		t.Fatalf("expected content type name, got %q", rec.ObjectType)
	}
	if rec.ObjectID != 9 {
		t.Fatalf("expected object id 9, got %d", rec.ObjectID)
	}
}

func TestChangeRecordNormalizeDefaults(t *testing.T) {
	var rec ChangeRecord
	if err := json.Unmarshal([]byte(`{"time":"2026-10-16T00:00:00Z","user":null,"action":{"value":null}}`), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}

	norm := rec.Normalize()
	if norm.Username != Unknown || norm.Action != Unknown || norm.ObjectType != Unknown || norm.ObjectRepr != Unknown {
		t.Fatalf("expected unknown defaults, got %+v", norm)
	}
	if norm.RequestID != NoRequestID {
		t.Fatalf("expected %q, got %q", NoRequestID, norm.RequestID)
	}
	if norm.Time != "2026-10-16T00:00:00Z" {
		t.Fatalf("time should be kept, got %q", norm.Time)
	}
	if rec.Username != "" {
		t.Fatal("normalize must not modify the receiver")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{in: "2026-10-16T08:15:00Z", want: time.Date(2026, 10, 16, 8, 15, 0, 0, time.UTC)},
		{in: "2026-10-16T10:15:00+02:00", want: time.Date(2026, 10, 16, 8, 15, 0, 0, time.UTC)},
		{in: "2026-10-16T08:15:00", want: time.Date(2026, 10, 16, 8, 15, 0, 0, time.UTC)},
		{in: "2026-10-16", want: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("parse %q: got %v want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatal("expected error for non-timestamp")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	var err error = &UsageError{Problem: "username is required", Usage: "user <username>"}
	if !errors.Is(err, ErrUsage) {
		t.Fatal("usage error should match ErrUsage")
	}

	err = &ErrSchemaViolation{Errors: []string{"missing results"}}
	if !errors.Is(err, ErrFormat) {
		t.Fatal("schema violation should match ErrFormat")
	}

	err = &FilterError{Fields: map[string]string{"limit": "must be integer", "offset": "must be integer"}}
	if !errors.Is(err, ErrInvalidFilter) {
		t.Fatal("filter error should match ErrInvalidFilter")
	}
	if got := err.Error(); got != "invalid filter: limit: must be integer, offset: must be integer" {
		t.Fatalf("unexpected message: %q", got)
	}
}
