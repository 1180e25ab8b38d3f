// Package cursor implements the multi-resource pagination token. Externally
// the cursor is a single-element array holding one opaque string; internally
// it is a per-resource map of resume positions, so scatter-gather pagination
// stays well-defined when resources advance at different rates.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// tokenPrefix versions the encoding so a future format change can coexist.
const tokenPrefix = "g1:"

// Position is the sort-key position of the last record consumed from one
// resource. Seq is the record's sequence value (descending sort key);
// RecordID breaks ties between records sharing a sequence value, so resuming
// is exact even when many records carry the same modified timestamp.
type Position struct {
	Seq      float64 `json:"s"`
	RecordID string  `json:"r"`
}

// Cursor maps resource ids to resume positions. Iteration resumes strictly
// after each position.
type Cursor map[string]Position

// Encode renders the cursor as the external after value: a single-element
// array holding an opaque token.
func (c Cursor) Encode() ([]any, error) {
	if len(c) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(map[string]Position(c))
	if err != nil {
		return nil, fmt.Errorf("encode cursor: %w", err)
	}
	token := tokenPrefix + base64.RawURLEncoding.EncodeToString(payload)
	return []any{token}, nil
}

// Decode parses an external after value. A nil or empty value means "from the
// start". Anything that is not a single-element array holding a token from a
// previous response is rejected.
func Decode(after []any) (Cursor, error) {
	if len(after) == 0 {
		return nil, nil
	}
	if len(after) != 1 {
		return nil, fmt.Errorf("after must hold exactly one value, got %d", len(after))
	}
	token, ok := after[0].(string)
	if !ok {
		return nil, fmt.Errorf("after value must be a string token")
	}
	if !strings.HasPrefix(token, tokenPrefix) {
		return nil, fmt.Errorf("unrecognized after token")
	}
	payload, err := base64.RawURLEncoding.DecodeString(token[len(tokenPrefix):])
	if err != nil {
		return nil, fmt.Errorf("decode after token: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("parse after token: %w", err)
	}
	return c, nil
}
