package usecase

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/nbchanges/internal/core/domain"
)

type Shape int

const (
	ShapePretty Shape = iota
	ShapeLines
	ShapeGrouped
	ShapeCSV
)

func (s Shape) String() string {
	switch s {
	case ShapeLines:
		return "lines"
	case ShapeGrouped:
		return "grouped"
	case ShapeCSV:
		return "csv"
	default:
		return "pretty"
	}
}

// CommandSpec describes how one command maps its positional argument onto
// the change log query and how the response is printed.
type CommandSpec struct {
	Name      string
	Summary   string
	ArgsUsage string

	// Arg names the required positional argument, sent as FilterParam.
	Arg         string
	FilterParam string

	// LimitArg lets the first positional argument override DefaultLimit.
	LimitArg     bool
	DefaultLimit string

	SinceToday bool
	Shape      Shape
}

func (c CommandSpec) Usage() string {
	if c.ArgsUsage == "" {
		return c.Name
	}
	return c.Name + " " + c.ArgsUsage
}

var commandSpecs = []CommandSpec{
	{Name: "latest", Summary: "Show the latest changes", ArgsUsage: "[N=100]", LimitArg: true, DefaultLimit: "100", Shape: ShapePretty},
	{Name: "who", Summary: "Show who changed what, one line per change", ArgsUsage: "[N=100]", LimitArg: true, DefaultLimit: "100", Shape: ShapeLines},
	{Name: "today", Summary: "Show changes since 00:00 UTC today", DefaultLimit: "1000", SinceToday: true, Shape: ShapePretty},
	{Name: "since", Summary: "Show changes since a timestamp", ArgsUsage: "<ISO8601>", Arg: "timestamp", FilterParam: "time__gte", DefaultLimit: "1000", Shape: ShapePretty},
	{Name: "user", Summary: "Show changes made by a user", ArgsUsage: "<username>", Arg: "username", FilterParam: "user__username", DefaultLimit: "1000", Shape: ShapePretty},
	{Name: "type", Summary: "Show changes to one object type", ArgsUsage: "<dotted.type>", Arg: "object type", FilterParam: "changed_object_type", DefaultLimit: "1000", Shape: ShapePretty},
	{Name: "action", Summary: "Show changes with one action", ArgsUsage: "<create|update|delete>", Arg: "action", FilterParam: "action", DefaultLimit: "1000", Shape: ShapePretty},
	{Name: "object-id", Summary: "Show changes to one object id", ArgsUsage: "<integer>", Arg: "object id", FilterParam: "changed_object_id", DefaultLimit: "1000", Shape: ShapePretty},
	{Name: "group-request", Summary: "Group changes by request id", ArgsUsage: "[N=200]", LimitArg: true, DefaultLimit: "200", Shape: ShapeGrouped},
	{Name: "csv", Summary: "Export changes as CSV", ArgsUsage: "[N=1000]", LimitArg: true, DefaultLimit: "1000", Shape: ShapeCSV},
}

// Commands returns the query commands in help order.
func Commands() []CommandSpec {
	out := make([]CommandSpec, len(commandSpecs))
	copy(out, commandSpecs)
	return out
}

func LookupCommand(name string) (CommandSpec, bool) {
	for _, spec := range commandSpecs {
		if spec.Name == name {
			return spec, true
		}
	}
	return CommandSpec{}, false
}

// BuildQuery validates the positional arguments of a command and returns the
// query to send. Values are passed through as given; the remote service is
// responsible for rejecting malformed ones.
func BuildQuery(name string, args []string, now time.Time) (domain.Query, CommandSpec, error) {
	spec, ok := LookupCommand(name)
	if !ok {
		return domain.Query{}, CommandSpec{}, &domain.UsageError{
			Problem: fmt.Sprintf("unknown command %q", name),
			Usage:   "help",
		}
	}

	first := ""
	if len(args) > 0 {
		first = args[0]
	}

	params := url.Values{}
	params.Set("ordering", "-time")
	limit := spec.DefaultLimit

	switch {
	case spec.Arg != "":
		if strings.TrimSpace(first) == "" {
			return domain.Query{}, spec, &domain.UsageError{
				Problem: spec.Arg + " is required",
				Usage:   spec.Usage(),
			}
		}
		params.Set(spec.FilterParam, first)
	case spec.LimitArg && strings.TrimSpace(first) != "":
		limit = first
	}

	if spec.SinceToday {
		params.Set("time__gte", StartOfUTCDay(now).Format("2006-01-02T15:04:05Z"))
	}
	params.Set("limit", limit)

	return domain.Query{Command: spec.Name, Params: params}, spec, nil
}

func StartOfUTCDay(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
