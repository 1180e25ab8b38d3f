// Package schema versions the query grammar. Each registered version pairs a
// JSON Schema, used to validate raw documents before compilation, with the
// compiler that builds the typed AST for that grammar.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kailas-cloud/multidex/internal/domain"
	"github.com/kailas-cloud/multidex/internal/domain/query"
)

// Compiler builds a typed query from a document already known to match the
// grammar version it was registered with.
type Compiler interface {
	Compile(doc map[string]any) (query.Query, error)
}

// Grammar is one registered query grammar version.
type Grammar struct {
	version  string
	schema   *gojsonschema.Schema
	compiler Compiler
}

// NewGrammar compiles the raw JSON Schema and binds it to a compiler.
func NewGrammar(version string, rawSchema []byte, compiler Compiler) (Grammar, error) {
	if version == "" {
		return Grammar{}, fmt.Errorf("grammar version must not be empty")
	}
	if compiler == nil {
		return Grammar{}, fmt.Errorf("grammar %s: compiler must not be nil", version)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(rawSchema))
	if err != nil {
		return Grammar{}, fmt.Errorf("compile grammar %s: %w", version, err)
	}
	return Grammar{version: version, schema: schema, compiler: compiler}, nil
}

// Version returns the grammar's version tag, e.g. "v1.0.0".
func (g Grammar) Version() string { return g.version }

// Validate checks a raw document against the grammar's JSON Schema. A failing
// document yields a SchemaViolation pointing at the first offending node.
func (g Grammar) Validate(doc map[string]any) error {
	res, err := g.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate against grammar %s: %w", g.version, err)
	}
	if res.Valid() {
		return nil
	}
	first := res.Errors()[0]
	return domain.NewSchemaViolation(pointerPath(first.Field()), "%s", first.Description())
}

// Compile validates the document and builds the typed AST.
func (g Grammar) Compile(doc map[string]any) (query.Query, error) {
	if err := g.Validate(doc); err != nil {
		return query.Query{}, err
	}
	return g.compiler.Compile(doc)
}

// pointerPath converts gojsonschema's dotted field notation ("filters.and.0")
// into the slash-separated paths used everywhere else ("/filters/and/0").
func pointerPath(field string) string {
	if field == "" || field == "(root)" {
		return "/"
	}
	return "/" + strings.ReplaceAll(field, ".", "/")
}

// Registry resolves version tags to grammars. The zero tag resolves to the
// latest registered version.
type Registry struct {
	grammars map[string]Grammar
	latest   string
}

// NewRegistry builds a registry from one or more grammars. The latest version
// is the lexicographically greatest tag, which holds for the vN.N.N scheme in
// use here.
func NewRegistry(grammars ...Grammar) (*Registry, error) {
	if len(grammars) == 0 {
		return nil, fmt.Errorf("registry requires at least one grammar")
	}
	byVersion := make(map[string]Grammar, len(grammars))
	tags := make([]string, 0, len(grammars))
	for _, g := range grammars {
		if _, ok := byVersion[g.version]; ok {
			return nil, fmt.Errorf("duplicate grammar version %s", g.version)
		}
		byVersion[g.version] = g
		tags = append(tags, g.version)
	}
	sort.Strings(tags)
	return &Registry{grammars: byVersion, latest: tags[len(tags)-1]}, nil
}

// Latest returns the version tag an empty query_version resolves to.
func (r *Registry) Latest() string { return r.latest }

// Resolve returns the grammar for a version tag. An empty tag selects the
// latest version; an unknown tag is ErrUnsupportedVersion.
func (r *Registry) Resolve(tag string) (Grammar, error) {
	if tag == "" {
		tag = r.latest
	}
	g, ok := r.grammars[tag]
	if !ok {
		return Grammar{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedVersion, tag)
	}
	return g, nil
}
