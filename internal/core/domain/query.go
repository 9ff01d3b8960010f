package domain

import (
	"net/url"
	"time"
)

const ObjectChangesPath = "/api/core/object-changes/"

// Query is a built change log request: the command that produced it and
// the query string parameters to send.
type Query struct {
	Command string
	Params  url.Values
}

// ChangeFilter selects records from a change store.
type ChangeFilter struct {
	Username   string
	ObjectType string
	Action     string
	ObjectID   int64
	RequestID  string
	Since      time.Time
	Until      time.Time
	Ascending  bool
	Limit      int
	Offset     int
}

type ChangePage struct {
	Count   int64
	Records []ChangeRecord
}
