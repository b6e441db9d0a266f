package definition

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/apisync/pkg/errors"
)

// Parse decodes a YAML or JSON document and validates it.
// Unknown fields are rejected.
func Parse(data []byte) (*Definition, error) {
	return parse(data, "")
}

// Load reads and parses a definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return parse(data, path)
}

func parse(data []byte, file string) (*Definition, error) {
	format := "yaml"
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		format = "json"
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewParseError(format, file, "empty document", nil)
	}

	var def Definition
	if err := yaml.UnmarshalWithOptions(data, &def, yaml.Strict()); err != nil {
		return nil, errors.WrapParse(format, file, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Marshal encodes a definition as YAML.
func Marshal(def *Definition) ([]byte, error) {
	return yaml.MarshalWithOptions(def, yaml.IndentSequence(true))
}
