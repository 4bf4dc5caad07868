package task

import (
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// successCriterionSchema bounds the shape a task's SuccessCriterion must
// take; it is checked after a YAML overlay has been decoded.
const successCriterionSchema = `{
	"type": "object",
	"required": ["kind"],
	"properties": {
		"kind": {"enum": ["file_exists", "file_contains", "command_exit", "command_stdout"]}
	}
}`

var compiledCriterionSchema = mustCompile("success_criterion.schema.json", successCriterionSchema)

func mustCompile(name, schema string) *jsonschema.Schema {
	s, err := jsonschema.CompileString(name, schema)
	if err != nil {
		panic(fmt.Sprintf("task: invalid embedded schema %s: %v", name, err))
	}
	return s
}

// ValidateCatalog checks every task in a Catalog and returns every problem
// found at once (errors.Join), rather than stopping at the first.
func ValidateCatalog(c *Catalog) error {
	var errs []error
	for slug, t := range c.CodeTasks {
		if err := validateCodeTask(t); err != nil {
			errs = append(errs, fmt.Errorf("code task %q: %w", slug, err))
		}
	}
	for slug, t := range c.ToolTasks {
		if err := validateToolTask(t); err != nil {
			errs = append(errs, fmt.Errorf("tool task %q: %w", slug, err))
		}
	}
	return errors.Join(errs...)
}

func validateCodeTask(t CodeTask) error {
	var errs []error
	if t.Slug == "" {
		errs = append(errs, errors.New("missing slug"))
	}
	if t.ExpectedSymbol == "" {
		errs = append(errs, errors.New("missing expectedSymbol"))
	}
	switch t.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		errs = append(errs, fmt.Errorf("invalid difficulty %q", t.Difficulty))
	}
	if len(t.Tests) == 0 {
		errs = append(errs, errors.New("no test cases"))
	}
	return errors.Join(errs...)
}

func validateToolTask(t ToolTask) error {
	var errs []error
	if t.Slug == "" {
		errs = append(errs, errors.New("missing slug"))
	}
	if t.MaxTurns <= 0 {
		errs = append(errs, errors.New("maxTurns must be positive"))
	}
	if len(t.SuccessCriteria) == 0 {
		errs = append(errs, errors.New("no success criteria"))
	}
	for i, c := range t.SuccessCriteria {
		if err := validateCriterionShape(c); err != nil {
			errs = append(errs, fmt.Errorf("successCriteria[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func validateCriterionShape(c SuccessCriterion) error {
	shape := map[string]any{"kind": string(c.Kind)}
	if err := compiledCriterionSchema.Validate(shape); err != nil {
		return err
	}
	switch c.Kind {
	case CriteriaFileExists, CriteriaFileContains:
		if c.Path == "" {
			return errors.New("missing path")
		}
	case CriteriaCommandExit, CriteriaCommandStdout:
		if len(c.Command) == 0 {
			return errors.New("missing command")
		}
	}
	return nil
}
