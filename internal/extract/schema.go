// Package extract turns a loaded page plus a natural-language instruction into
// validated structured data by asking a language model.
package extract

import (
	"encoding/json"
	"strings"
)

// FieldType is the JSON type a schema field must decode to.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeURL    FieldType = "url"
	TypeArray  FieldType = "array"
)

// Field declares one property of an extraction result.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Nullable    bool
	Items       []Field // element fields when Type is TypeArray
}

// Schema declares the shape the model must return. The decode target passed
// alongside it carries the matching json and validate tags.
type Schema struct {
	Name   string
	Fields []Field
}

// Describe renders the schema as a JSON skeleton for the prompt.
func (s Schema) Describe() string {
	out, err := json.MarshalIndent(skeleton(s.Fields), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

func skeleton(fields []Field) map[string]any {
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		switch f.Type {
		case TypeArray:
			m[f.Name] = []any{skeleton(f.Items)}
		default:
			m[f.Name] = typeHint(f)
		}
	}
	return m
}

func typeHint(f Field) string {
	var b strings.Builder
	if f.Type == TypeURL {
		b.WriteString("string (absolute URL)")
	} else {
		b.WriteString("string")
	}
	if f.Nullable {
		b.WriteString(" or null")
	}
	if f.Description != "" {
		b.WriteString(": ")
		b.WriteString(f.Description)
	}
	return b.String()
}
