package metadata

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

const (
	nftSchema  = "schemas/nft_metadata.schema.json"
	postSchema = "schemas/lens_post.schema.json"
)

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func schemas() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		names := []string{nftSchema, postSchema}
		for _, name := range names {
			data, err := schemaFiles.ReadFile(name)
			if err != nil {
				compileErr = fmt.Errorf("read schema %s: %w", name, err)
				return
			}
			if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
				compileErr = fmt.Errorf("add schema %s: %w", name, err)
				return
			}
		}
		out := make(map[string]*jsonschema.Schema, len(names))
		for _, name := range names {
			schema, err := compiler.Compile(name)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			out[name] = schema
		}
		compiled = out
	})
	return compiled, compileErr
}

func validate(schemaName string, data []byte) error {
	all, err := schemas()
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	if err := all[schemaName].Validate(doc); err != nil {
		return fmt.Errorf("document does not match schema: %w", err)
	}
	return nil
}
