package paper

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalid is returned when a document does not match the StructuredPaper schema.
var ErrInvalid = errors.New("structured paper does not match schema")

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		b, err := json.Marshal(Schema())
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("structured_paper.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("structured_paper.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Validate checks raw JSON against the StructuredPaper schema.
func Validate(data []byte) error {
	s, err := schema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Decode validates and unmarshals a StructuredPaper.
func Decode(data []byte) (*StructuredPaper, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var p StructuredPaper
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &p, nil
}

// Encode renders p as indented UTF-8 JSON with a trailing newline. Field
// order follows the struct definitions, so output is stable.
func Encode(p *StructuredPaper) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil paper", ErrInvalid)
	}
	cp := *p
	cp.Sections = append([]PaperSection(nil), p.Sections...)
	cp.Normalize()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&cp); err != nil {
		return nil, fmt.Errorf("failed to encode structured paper: %w", err)
	}
	return buf.Bytes(), nil
}
