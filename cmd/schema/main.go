package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"easy-ai/server/internal/config"
)

var errStale = errors.New("schema is out of date")

func main() {
	out := flag.String("out", "", "path of the config JSON schema")
	check := flag.Bool("check", false, "fail if the schema at -out differs instead of rewriting it")
	flag.Parse()

	if *out == "" {
		fmt.Fprintln(os.Stderr, "schema: -out is required")
		os.Exit(2)
	}

	schema := buildSchema()
	var err error
	if *check {
		err = checkSchema(*out, schema)
	} else {
		err = writeSchema(*out, schema)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(new(config.Config))
	schema.Title = "Easy-AI Server Configuration"
	schema.Description = "Validates YAML or HJSON configuration files passed to easyai --config"
	return schema
}

func render(schema *jsonschema.Schema) ([]byte, error) {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return append(data, '\n'), nil
}

// writeSchema replaces path through a sibling temp file so readers never see
// a partial document.
func writeSchema(path string, schema *jsonschema.Schema) error {
	data, err := render(schema)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func checkSchema(path string, schema *jsonschema.Schema) error {
	want, err := render(schema)
	if err != nil {
		return err
	}
	have, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if !bytes.Equal(have, want) {
		return fmt.Errorf("%s: %w", path, errStale)
	}
	return nil
}
