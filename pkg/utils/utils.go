package utils

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
)

// GetSchemaFromConfig returns the indented JSON schema of config. The top-level struct is
// expanded in place; nested structs are referenced through $defs.
func GetSchemaFromConfig(config any) (string, error) {
	reflector := jsonschema.Reflector{ExpandedStruct: true}
	schema := reflector.Reflect(config)

	jsonSchemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to encode json schema", err)
	}

	return string(jsonSchemaBytes), nil
}
