package outparse_test

import (
	"errors"
	"testing"

	"github.com/crossborderlabs/kolgraph/pkg/llm/outparse"
)

func TestStripFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around fence", "Here you go:\n```json\n{\"a\":1}\n```\nHope that helps!", `{"a":1}`},
		{"whitespace", "  \n {\"a\":1} \n ", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := outparse.StripFences(tc.in); got != tc.want {
				t.Errorf("StripFences = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestObject_RequiredKeys(t *testing.T) {
	obj, err := outparse.Object(`{"a": 1, "b": "x"}`, "a", "b")
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	if obj["b"] != "x" {
		t.Errorf("b = %v, want x", obj["b"])
	}

	_, err = outparse.Object(`{"a": 1}`, "a", "b", "c")
	var missing *outparse.MissingKeysError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want *MissingKeysError", err)
	}
	if len(missing.Keys) != 2 {
		t.Errorf("missing keys = %v, want [b c]", missing.Keys)
	}
}

func TestObject_RepairsSloppyJSON(t *testing.T) {
	// Trailing comma and single quotes: invalid JSON that repair can fix.
	obj, err := outparse.Object("```json\n{'a': 1, 'b': 'x',}\n```", "a", "b")
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	if obj["b"] != "x" {
		t.Errorf("b = %v, want x", obj["b"])
	}
}

func TestObject_EmptyText(t *testing.T) {
	if _, err := outparse.Object(""); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestArray(t *testing.T) {
	items, err := outparse.Array(`[{"id": "a"}, {"id": "b"}]`)
	if err != nil {
		t.Fatalf("Array: %v", err)
	}
	if len(items) != 2 || items[1]["id"] != "b" {
		t.Errorf("items = %v", items)
	}

	if _, err := outparse.Array(`{"id": "a"}`); err == nil {
		t.Error("expected error for top-level object")
	}
	if _, err := outparse.Array(`[{"id": "a"}, 42]`); err == nil {
		t.Error("expected error for non-object item")
	}
}

func TestDecode(t *testing.T) {
	type tagged struct {
		Feature []string `json:"feature_tags"`
	}
	got, err := outparse.Decode[tagged]("```json\n{\"feature_tags\": [\"light\", \"cheap\"]}\n```", "feature_tags")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Feature) != 2 || got.Feature[0] != "light" {
		t.Errorf("got = %+v", got)
	}
}

func TestDecodeItem_MissingKey(t *testing.T) {
	type row struct {
		ID string `json:"id"`
	}
	_, err := outparse.DecodeItem[row](map[string]any{"name": "x"}, "id")
	var missing *outparse.MissingKeysError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want *MissingKeysError", err)
	}
}
