package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/skoglund/rayprop/internal/sim"
)

//go:embed schema.cue
var schemaSource string

// validateSchema unifies the YAML document with the embedded #Config
// definition. Definitions are closed, so unknown fields fail here with a
// CUE position rather than a bare decode error.
func validateSchema(data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return sim.NewConfigError("parse config: %v", err)
	}
	if doc == nil {
		return sim.NewConfigError("empty config document")
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile embedded schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup #Config: %w", err)
	}

	unified := def.Unify(ctx.Encode(doc))
	if err := unified.Validate(); err != nil {
		return sim.NewConfigError("%s", formatCUEError(err))
	}
	return nil
}

// formatCUEError flattens a CUE error list into one message with the first
// error's position, if it carries one.
func formatCUEError(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 && positions[0].IsValid() {
		return fmt.Sprintf("%v: %s", positions[0], first.Error())
	}
	return first.Error()
}
