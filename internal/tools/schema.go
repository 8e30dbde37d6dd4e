package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// inputSchemas compiles the input schema of every tool in the catalog once.
var inputSchemas = sync.OnceValues(func() (map[string]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiled := make(map[string]*jsonschema.Schema)
	for _, def := range Definitions() {
		url := def.Name + ".json"
		if err := compiler.AddResource(url, bytes.NewReader(def.InputSchema)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", def.Name, err)
		}
		s, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", def.Name, err)
		}
		compiled[def.Name] = s
	}
	return compiled, nil
})

// validateArgs checks raw arguments against the input schema of the named tool.
func validateArgs(name string, args json.RawMessage) error {
	schemas, err := inputSchemas()
	if err != nil {
		return err
	}
	s, ok := schemas[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	var v any
	if err := json.Unmarshal(args, &v); err != nil {
		return fmt.Errorf("%w: arguments are not valid JSON: %v", ErrInvalidInput, err)
	}
	err = s.Validate(v)
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, describe(ve))
}

// describe reports the first failing leaf, e.g. "at /size: expected integer, but got string".
func describe(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return "at " + loc + ": " + ve.Message
}
