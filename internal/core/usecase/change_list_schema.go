package usecase

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/atvirokodosprendimai/nbchanges/internal/core/domain"
)

//go:embed change_list.schema.json
var changeListSchemaJSON []byte

var (
	changeListSchemaOnce sync.Once
	changeListSchema     *santhosh.Schema
	changeListSchemaErr  error
)

// validateChangeList checks a decoded response body against the change list
// envelope. Returns *domain.ErrSchemaViolation on failure.
func validateChangeList(doc any) error {
	changeListSchemaOnce.Do(func() {
		changeListSchema, changeListSchemaErr = compileSchema(changeListSchemaJSON)
	})
	if changeListSchemaErr != nil {
		return fmt.Errorf("compile change list schema: %w", changeListSchemaErr)
	}

	if err := changeListSchema.Validate(doc); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			return &domain.ErrSchemaViolation{Errors: collectValidationErrors(ve)}
		}
		return &domain.ErrSchemaViolation{Errors: []string{err.Error()}}
	}
	return nil
}

func compileSchema(schemaJSON []byte) (*santhosh.Schema, error) {
	compiler := santhosh.NewCompiler()
	compiler.Draft = santhosh.Draft7
	if err := compiler.AddResource("change_list.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile("change_list.schema.json")
}

func collectValidationErrors(ve *santhosh.ValidationError) []string {
	var msgs []string
	for _, cause := range ve.Causes {
		msgs = append(msgs, collectValidationErrors(cause)...)
	}
	if len(ve.Causes) == 0 {
		msgs = append(msgs, fmt.Sprintf("%s: %s", locationOrRoot(ve.InstanceLocation), ve.Message))
	}
	return msgs
}

func locationOrRoot(loc string) string {
	if loc == "" {
		return "/"
	}
	return loc
}
