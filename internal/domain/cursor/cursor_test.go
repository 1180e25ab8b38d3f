package cursor

import (
	"strings"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	c := Cursor{
		"birds":   {Seq: 500, RecordID: "b1"},
		"mammals": {Seq: 450.5, RecordID: "m1"},
	}

	after, err := c.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(after) != 1 {
		t.Fatalf("after: got %d elements, want 1", len(after))
	}
	token, ok := after[0].(string)
	if !ok || !strings.HasPrefix(token, "g1:") {
		t.Fatalf("token: %v", after[0])
	}

	decoded, err := Decode(after)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded: got %d positions, want 2", len(decoded))
	}
	if decoded["birds"] != c["birds"] || decoded["mammals"] != c["mammals"] {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}

func TestEncode_Empty(t *testing.T) {
	after, err := Cursor{}.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if after != nil {
		t.Errorf("empty cursor should encode to nil, got %v", after)
	}
}

func TestDecode_Empty(t *testing.T) {
	c, err := Decode(nil)
	if err != nil {
		t.Fatalf("decode nil: %v", err)
	}
	if c != nil {
		t.Errorf("nil after should decode to nil cursor, got %v", c)
	}
}

func TestDecode_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		after []any
	}{
		{"two elements", []any{"g1:abc", "g1:def"}},
		{"non-string element", []any{42}},
		{"missing prefix", []any{"not-a-token"}},
		{"bad base64", []any{"g1:%%%"}},
		{"bad payload", []any{"g1:bm90LWpzb24"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.after); err == nil {
				t.Errorf("Decode(%v) should fail", tt.after)
			}
		})
	}
}
