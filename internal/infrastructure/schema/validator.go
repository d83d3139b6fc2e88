// Package schema validates provider response bodies against JSON schemas
// reflected from the Go structs they decode into.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator checks raw JSON against a compiled schema before decoding.
type Validator struct {
	name   string
	schema *jsonschema.Schema
}

// For reflects a schema from the type of sample. Fields without omitempty are
// required; unknown properties are allowed so provider additions do not break decoding.
func For(name string, sample any) (*Validator, error) {
	reflector := &invopop.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	raw, err := json.Marshal(reflector.Reflect(sample))
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", name, err)
	}

	resource := name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resource, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%s schema resource: %w", name, err)
	}
	compiled, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return &Validator{name: name, schema: compiled}, nil
}

// MustFor is For that panics, for package level validators.
func MustFor(name string, sample any) *Validator {
	v, err := For(name, sample)
	if err != nil {
		panic(err)
	}
	return v
}

// Decode validates raw and unmarshals it into out.
func (v *Validator) Decode(raw []byte, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%s: empty body", v.name)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%s: parse json: %w", v.name, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%s: unexpected shape: %w", v.name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode: %w", v.name, err)
	}
	return nil
}
