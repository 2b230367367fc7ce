package schema

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"folio/models"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

var (
	compiledMu sync.Mutex
	compiled   = map[models.SectionType]*gojsonschema.Schema{}
)

func loadSchema(t models.SectionType) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if s, ok := compiled[t]; ok {
		return s, nil
	}
	raw, err := schemaFiles.ReadFile("schemas/" + string(t) + ".json")
	if err != nil {
		return nil, fmt.Errorf("schema for %s: %w", t, err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", t, err)
	}
	compiled[t] = s
	return s, nil
}

// jsonSchemaValidator checks section data against the embedded schema for t.
func jsonSchemaValidator(t models.SectionType) func(map[string]interface{}) error {
	return func(data map[string]interface{}) error {
		s, err := loadSchema(t)
		if err != nil {
			return err
		}
		res, err := s.Validate(gojsonschema.NewGoLoader(data))
		if err != nil {
			return &models.ValidationError{Type: t, Reason: err.Error()}
		}
		if res.Valid() {
			return nil
		}
		msgs := make([]string, 0, len(res.Errors()))
		var fields []string
		seen := map[string]bool{}
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
			if key := topLevelField(e); key != "" && !seen[key] {
				seen[key] = true
				fields = append(fields, key)
			}
		}
		return &models.ValidationError{Type: t, Reason: strings.Join(msgs, "; "), Fields: fields}
	}
}

// topLevelField returns the data key a schema error sits under. Errors raised
// on the root object (missing or extra properties) name it in their details.
func topLevelField(e gojsonschema.ResultError) string {
	field := e.Field()
	if field == gojsonschema.STRING_ROOT_SCHEMA_PROPERTY || field == "" {
		prop, _ := e.Details()["property"].(string)
		return prop
	}
	return strings.SplitN(field, ".", 2)[0]
}
