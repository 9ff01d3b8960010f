package usecase

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidwall/pretty"

	"github.com/atvirokodosprendimai/nbchanges/internal/core/domain"
)

// prettyOptions expands every array and object, one element per line.
var prettyOptions = &pretty.Options{Width: 0, Indent: "  "}

// Pretty re-indents a JSON body. Invalid JSON is a format error rather than
// being echoed back.
func Pretty(body []byte) ([]byte, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: response is not valid json", domain.ErrFormat)
	}
	return pretty.PrettyOptions(body, prettyOptions), nil
}

// DecodeChanges parses a change list body and returns its records in
// response order, normalized for display.
func DecodeChanges(body []byte) ([]domain.ChangeRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrFormat, err)
	}
	if err := validateChangeList(doc); err != nil {
		return nil, err
	}

	var envelope struct {
		Results []domain.ChangeRecord `json:"results"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode results: %v", domain.ErrFormat, err)
	}

	records := make([]domain.ChangeRecord, 0, len(envelope.Results))
	for _, rec := range envelope.Results {
		records = append(records, rec.Normalize())
	}
	return records, nil
}

// Render writes body to w in the given shape.
func Render(w io.Writer, shape Shape, body []byte) error {
	if shape == ShapePretty {
		out, err := Pretty(body)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}

	records, err := DecodeChanges(body)
	if err != nil {
		return err
	}
	switch shape {
	case ShapeLines:
		return WriteLines(w, records)
	case ShapeGrouped:
		return WriteGrouped(w, records)
	case ShapeCSV:
		return WriteCSV(w, records)
	default:
		return fmt.Errorf("unsupported output shape %d", shape)
	}
}

func WriteLines(w io.Writer, records []domain.ChangeRecord) error {
	for _, rec := range records {
		if _, err := fmt.Fprintf(w, "%s | %s | %s | %s | %s\n", rec.Time, rec.Username, rec.Action, rec.ObjectType, rec.ObjectRepr); err != nil {
			return err
		}
	}
	return nil
}

type RequestGroup struct {
	RequestID string
	Records   []domain.ChangeRecord
}

// GroupByRequest partitions normalized records by request id. Groups keep
// the order in which their first record appears; records keep input order.
func GroupByRequest(records []domain.ChangeRecord) []RequestGroup {
	index := make(map[string]int)
	groups := make([]RequestGroup, 0)
	for _, rec := range records {
		id := rec.RequestID
		if id == "" {
			id = domain.NoRequestID
		}
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, RequestGroup{RequestID: id})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}
	return groups
}

func WriteGrouped(w io.Writer, records []domain.ChangeRecord) error {
	for _, group := range GroupByRequest(records) {
		if _, err := fmt.Fprintf(w, "REQUEST: %s USER: %s\n", group.RequestID, group.Records[0].Username); err != nil {
			return err
		}
		for _, rec := range group.Records {
			if _, err := fmt.Fprintf(w, "  - %s %s %s %s\n", rec.Time, rec.Action, rec.ObjectType, rec.ObjectRepr); err != nil {
				return err
			}
		}
	}
	return nil
}

func WriteCSV(w io.Writer, records []domain.ChangeRecord) error {
	cw := csv.NewWriter(w)
	for _, rec := range records {
		if err := cw.Write([]string{rec.Time, rec.Username, rec.Action, rec.ObjectType, rec.ObjectRepr}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
