// Package catalogschema validates persisted catalog documents against the embedded
// JSON schema plus the ordering and counting rules the schema cannot express.
package catalogschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/bundlefeed/internal/catalog"
)

//go:embed catalog.schema.json
var catalogSchemaJSON string

const schemaName = "catalog.schema.json"

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateCatalog checks raw against the schema and returns the decoded catalog.
func ValidateCatalog(raw []byte) (*catalog.Catalog, error) {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode catalog JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var cat catalog.Catalog
	if err := json.Unmarshal(bytes.TrimSpace(raw), &cat); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	if err := validateSemantics(&cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource(schemaName, strings.NewReader(catalogSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = compiler.Compile(schemaName)
		if compiledSchemaErr != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", compiledSchemaErr)
		}
	})
	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("document is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("document contains trailing content")
	}
	return value, nil
}

func validateSemantics(cat *catalog.Catalog) error {
	if cat.Meta.ItemsCount != len(cat.Items) {
		return fmt.Errorf("meta.items_count=%d but catalog holds %d items", cat.Meta.ItemsCount, len(cat.Items))
	}
	if cat.Meta.MaxTotalItems > 0 && len(cat.Items) > cat.Meta.MaxTotalItems {
		return fmt.Errorf("catalog holds %d items, above max_total_items=%d", len(cat.Items), cat.Meta.MaxTotalItems)
	}

	seen := make(map[string]int, len(cat.Items))
	for i, it := range cat.Items {
		if prev, dup := seen[it.ID]; dup {
			return fmt.Errorf("items[%d] repeats id %q from items[%d]", i, it.ID, prev)
		}
		seen[it.ID] = i

		if i > 0 && it.PublishedTS > cat.Items[i-1].PublishedTS {
			return fmt.Errorf("items[%d] is newer than items[%d]; items must be newest first", i, i-1)
		}
		if it.CanonicalURL != "" {
			if err := validateURI(fmt.Sprintf("items[%d].canonical_url", i), it.CanonicalURL); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateURI(fieldName, value string) error {
	parsed, err := url.ParseRequestURI(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be http or https", fieldName)
	}
	return nil
}
