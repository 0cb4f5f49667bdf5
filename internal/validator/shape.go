package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"formscan/internal/domain"
)

// shapeChecker holds one compiled schema per form type. The schemas only
// describe section types (objects, arrays, scalars); field content is left
// to the normalizer and the rules.
type shapeChecker struct {
	schemas map[domain.FormType]*jsonschema.Schema
}

var (
	itemSectionKeys   = []string{"items", "lineItems", "line_items"}
	headerSectionKeys = []string{"header", "headerInfo", "header_info"}
)

func scalar() map[string]any {
	return map[string]any{"type": []string{"string", "number", "boolean", "null"}}
}

func quantitySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"additionalProperties": map[string]any{
			"type": []string{"number", "string", "null"},
		},
	}
}

// shapeSchema builds the raw-object schema for ft.
func shapeSchema(ft domain.FormType) map[string]any {
	item := map[string]any{
		"type":                 "object",
		"additionalProperties": true,
	}
	itemProps := map[string]any{}
	switch ft {
	case domain.FormTypeHandReceipt, domain.FormTypeEquipmentRecord:
		itemProps["quantities"] = quantitySchema()
		itemProps["qty"] = quantitySchema()
	case domain.FormTypeRequestTurnIn, domain.FormTypeGeneric:
		itemProps["quantity"] = scalar()
	}
	item["properties"] = itemProps

	props := map[string]any{}
	for _, k := range itemSectionKeys {
		props[k] = map[string]any{"type": "array", "items": item}
	}
	for _, k := range headerSectionKeys {
		props[k] = map[string]any{
			"type":                 "object",
			"additionalProperties": scalar(),
		}
	}
	if ft == domain.FormTypeGeneric {
		props["rawText"] = map[string]any{"type": []string{"string", "null"}}
	}

	return map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"properties": props,
	}
}

func compileShape(ft domain.FormType) (*jsonschema.Schema, error) {
	b, err := json.Marshal(shapeSchema(ft))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	url := strings.ToLower(string(ft)) + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func defaultShapes() *shapeChecker {
	sc := &shapeChecker{schemas: make(map[domain.FormType]*jsonschema.Schema)}
	for _, ft := range domain.FormTypes() {
		schema, err := compileShape(ft)
		if err != nil {
			log.Printf("validator.shapeChecker: skipping %s schema: %v", ft, err)
			continue
		}
		sc.schemas[ft] = schema
	}
	return sc
}

// CheckShape validates the raw parsed object against the schema for ft and
// returns one document-level issue per mistyped location.
func (v *Validator) CheckShape(obj map[string]any, ft domain.FormType) []domain.ValidationIssue {
	out := []domain.ValidationIssue{}
	if obj == nil || v.shapes == nil {
		return out
	}
	schema, ok := v.shapes.schemas[ft]
	if !ok {
		return out
	}

	// Round-trip through JSON so the instance only holds types the schema
	// library understands.
	b, err := json.Marshal(obj)
	if err != nil {
		return out
	}
	var inst any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&inst); err != nil {
		return out
	}

	err = schema.Validate(inst)
	if err == nil {
		return out
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []domain.ValidationIssue{issue("unexpected shape: %v", err)}
	}

	seen := map[domain.ValidationIssue]bool{}
	for _, leaf := range leafErrors(verr) {
		loc := leaf.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		is := issue("unexpected shape at %s: %s", loc, leaf.Message)
		if !seen[is] {
			seen[is] = true
			out = append(out, is)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func leafErrors(e *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(e.Causes) == 0 {
		return []*jsonschema.ValidationError{e}
	}
	var out []*jsonschema.ValidationError
	for _, c := range e.Causes {
		out = append(out, leafErrors(c)...)
	}
	return out
}
