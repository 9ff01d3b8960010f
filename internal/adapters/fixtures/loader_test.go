package fixtures

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const jsonArray = `[
  {"id": 1, "time": "2024-05-01T10:00:00Z", "user": {"username": "alice"},
   "action": {"value": "create", "label": "Created"},
   "changed_object_type": "dcim.device", "changed_object_id": 7,
   "object_repr": "sw1", "request_id": "r1"},
  {"id": 2, "time": "2024-05-02T10:00:00Z", "user_name": "bob", "action": "delete",
   "changed_object_type": "dcim.site", "changed_object_id": 3}
]`

const yamlList = `
- id: 1
  time: "2024-05-01T10:00:00Z"
  user:
    username: alice
  action:
    value: update
  changed_object_type: ipam.prefix
  changed_object_id: 42
  object_repr: 10.0.0.0/24
  postchange_data:
    prefix: 10.0.0.0/24
    tags: [core, lab]
- time: 2024-05-03T08:00:00Z
  user: carol
  action: create
  changed_object_type: dcim.cable
`

func writeFixture(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadJSONArray(t *testing.T) {
	records, err := Load(writeFixture(t, "changes.json", jsonArray))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Username != "alice" || records[0].Action != "create" || records[0].ObjectID != 7 {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].Username != "bob" || records[1].Action != "delete" {
		t.Fatalf("unexpected second record: %+v", records[1])
	}
}

func TestLoadJSONEnvelope(t *testing.T) {
	body := `{"count": 2, "next": null, "previous": null, "results": ` + jsonArray + `}`
	records, err := Load(writeFixture(t, "page.json", body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestLoadJSONEnvelopeWithoutResults(t *testing.T) {
	if _, err := Load(writeFixture(t, "page.json", `{"count": 0}`)); err == nil {
		t.Fatal("expected error for envelope without results")
	}
}

func TestLoadYAML(t *testing.T) {
	records, err := Load(writeFixture(t, "changes.yaml", yamlList))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.Username != "alice" || first.Action != "update" || first.ObjectType != "ipam.prefix" || first.ObjectID != 42 {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.PostchangeData["prefix"] != "10.0.0.0/24" {
		t.Fatalf("unexpected postchange data: %#v", first.PostchangeData)
	}

	second := records[1]
	if second.Username != "carol" || second.Time != "2024-05-03T08:00:00Z" {
		t.Fatalf("unexpected second record: %+v", second)
	}
}

func TestLoadEmptyFixture(t *testing.T) {
	for _, name := range []string{"empty.json", "empty.yml"} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFixture(t, name, "  \n"))
			if !errors.Is(err, ErrEmptyFixture) {
				t.Fatalf("expected ErrEmptyFixture, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
