package schema

import (
	_ "embed"

	"github.com/kailas-cloud/multidex/internal/compiler"
)

// VersionV1 is the initial grammar.
const VersionV1 = "v1.0.0"

//go:embed v1_0_0.json
var rawSchemaV1 []byte

// Default builds the registry with every grammar this binary understands.
// maxDepth bounds filter group nesting; <= 0 selects the compiler default.
func Default(maxDepth int) (*Registry, error) {
	v1, err := NewGrammar(VersionV1, rawSchemaV1, compiler.New(maxDepth))
	if err != nil {
		return nil, err
	}
	return NewRegistry(v1)
}
