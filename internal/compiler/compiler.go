// Package compiler turns an untrusted, decoded query document into the typed
// AST. Every failure is a path-carrying SchemaViolation pointing at the
// offending node; nesting beyond the configured depth is QueryTooComplex.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/kailas-cloud/multidex/internal/domain"
	"github.com/kailas-cloud/multidex/internal/domain/query"
)

// DefaultMaxDepth bounds group nesting. The grammar itself is unbounded, so
// the guard is an explicit counter threaded through the recursion rather than
// a reliance on call-stack limits.
const DefaultMaxDepth = 25

// groupKeys and termKeys drive tagged-union dispatch at each tree node.
var (
	groupKeys = []string{"and", "or", "not"}
	termKeys  = []string{
		"string_equals", "string_contains", "number_equals", "number_range",
		"geo_point", "geo_named_area", "geo_custom_area", "exists",
	}
)

// Compiler builds typed queries from decoded JSON documents.
type Compiler struct {
	maxDepth int
}

// New creates a compiler. maxDepth <= 0 selects DefaultMaxDepth.
func New(maxDepth int) *Compiler {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Compiler{maxDepth: maxDepth}
}

// Compile validates the document against the grammar and builds the AST.
func (c *Compiler) Compile(doc map[string]any) (query.Query, error) {
	for key := range doc {
		if key != "search" && key != "filters" {
			return query.Query{}, domain.NewSchemaViolation("/"+key, "unknown key %q", key)
		}
	}

	var search string
	if raw, ok := doc["search"]; ok {
		s, ok := raw.(string)
		if !ok {
			return query.Query{}, domain.NewSchemaViolation("/search", "must be a string")
		}
		search = s
	}

	var filters *query.Group
	if raw, ok := doc["filters"]; ok {
		obj, ok := raw.(map[string]any)
		if !ok {
			return query.Query{}, domain.NewSchemaViolation("/filters", "must be an object")
		}
		g, err := c.compileGroup(obj, "/filters", 1)
		if err != nil {
			return query.Query{}, err
		}
		filters = g
	}

	return query.New(search, filters), nil
}

// compileGroup dispatches on the single group key and recursively builds the
// boolean tree. depth counts group nesting levels from 1 at /filters.
func (c *Compiler) compileGroup(obj map[string]any, path string, depth int) (*query.Group, error) {
	if depth > c.maxDepth {
		return nil, fmt.Errorf("%w: group nesting exceeds %d levels at %s",
			domain.ErrQueryTooComplex, c.maxDepth, path)
	}

	kind, err := singleKey(obj, groupKeys, path, "group")
	if err != nil {
		return nil, err
	}

	rawMembers, ok := obj[kind].([]any)
	if !ok {
		return nil, domain.NewSchemaViolation(path+"/"+kind, "must be an array")
	}

	members := make([]query.Node, 0, len(rawMembers))
	for i, rawMember := range rawMembers {
		memberPath := path + "/" + kind + "/" + strconv.Itoa(i)
		memberObj, ok := rawMember.(map[string]any)
		if !ok {
			return nil, domain.NewSchemaViolation(memberPath, "must be an object")
		}
		node, err := c.compileNode(memberObj, memberPath, depth)
		if err != nil {
			return nil, err
		}
		members = append(members, node)
	}

	g, err := query.NewGroup(query.GroupKind(kind), members)
	if err != nil {
		return nil, domain.NewSchemaViolation(path, "%s", err.Error())
	}
	return g, nil
}

// compileNode decides whether a member object is a nested group or a term.
// An object carrying both a group key and a term key is malformed.
func (c *Compiler) compileNode(obj map[string]any, path string, depth int) (query.Node, error) {
	hasGroup := hasAny(obj, groupKeys)
	hasTerm := hasAny(obj, termKeys)
	switch {
	case hasGroup && hasTerm:
		return nil, domain.NewSchemaViolation(path, "cannot mix group and term keys in one object")
	case hasGroup:
		return c.compileGroup(obj, path, depth+1)
	default:
		return compileTerm(obj, path)
	}
}

// singleKey enforces the tagged-union rule: exactly one recognized key, and
// no unrecognized keys, at this node.
func singleKey(obj map[string]any, recognized []string, path, what string) (string, error) {
	allowed := make(map[string]struct{}, len(recognized))
	for _, k := range recognized {
		allowed[k] = struct{}{}
	}
	var found []string
	for key := range obj {
		if _, ok := allowed[key]; !ok {
			return "", domain.NewSchemaViolation(path+"/"+key, "unknown %s key %q", what, key)
		}
		found = append(found, key)
	}
	switch len(found) {
	case 0:
		return "", domain.NewSchemaViolation(path, "%s requires exactly one of %v", what, recognized)
	case 1:
		return found[0], nil
	default:
		return "", domain.NewSchemaViolation(path, "%s must have exactly one key, got %d", what, len(found))
	}
}

func hasAny(obj map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}
