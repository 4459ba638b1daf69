package db

import (
	"errors"
	"strconv"
)

// VectorSpec configures the HNSW part of a course index. FLOAT32 vectors
// under cosine distance are the only configuration the service uses, so the
// spec carries just the tunables.
type VectorSpec struct {
	Dim         int
	M           int // max edges per HNSW node
	EFConstruct int // build-time dynamic list size
}

// FieldKind enumerates the scalar field types indexed next to the vector.
type FieldKind int

const (
	FieldTag FieldKind = iota
	FieldNumeric
)

// PayloadField is a filterable scalar field in the index schema.
type PayloadField struct {
	Name string
	Kind FieldKind
}

// IndexDefinition describes an FT index over hash-stored courses: one HNSW
// cosine vector field plus scalar payload fields, keyed under a single prefix.
type IndexDefinition struct {
	Name        string
	KeyPrefix   string
	VectorField string // hash field holding the embedding blob
	VectorAlias string // AS alias referenced by KNN queries
	Vector      VectorSpec
	Payload     []PayloadField
}

// Validate checks the definition is complete enough to render FT.CREATE args.
func (d *IndexDefinition) Validate() error {
	if d.Name == "" {
		return errors.New("index name is required")
	}
	if d.KeyPrefix == "" {
		return errors.New("key prefix is required")
	}
	if d.VectorField == "" {
		return errors.New("vector field is required")
	}
	if d.Vector.Dim <= 0 {
		return errors.New("vector dim must be positive")
	}

	seen := make(map[string]bool, len(d.Payload))
	for _, f := range d.Payload {
		if f.Name == "" {
			return errors.New("payload field name is required")
		}
		if seen[f.Name] {
			return errors.New("duplicate payload field: " + f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// CreateArgs renders the FT.CREATE argument list. Shared by both drivers
// since Redis and Valkey accept the same syntax here.
func (d *IndexDefinition) CreateArgs() ([]string, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	args := []string{d.Name, "ON", "HASH", "PREFIX", "1", d.KeyPrefix, "SCHEMA"}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(d.Vector.Dim),
		"DISTANCE_METRIC", "COSINE",
	}
	if d.Vector.M > 0 {
		attrs = append(attrs, "M", strconv.Itoa(d.Vector.M))
	}
	if d.Vector.EFConstruct > 0 {
		attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(d.Vector.EFConstruct))
	}

	args = append(args, d.VectorField)
	if d.VectorAlias != "" {
		args = append(args, "AS", d.VectorAlias)
	}
	args = append(args, "VECTOR", "HNSW", strconv.Itoa(len(attrs)))
	args = append(args, attrs...)

	for _, f := range d.Payload {
		args = append(args, f.Name)
		switch f.Kind {
		case FieldTag:
			args = append(args, "TAG")
		case FieldNumeric:
			args = append(args, "NUMERIC")
		}
	}

	return args, nil
}
