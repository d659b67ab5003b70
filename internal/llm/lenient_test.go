package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around object", `Sure! Here you go: {"a":1} Anything else?`, `{"a":1}`},
		{"nested objects", `{"a":{"b":{"c":2}}}`, `{"a":{"b":{"c":2}}}`},
		{"braces inside strings", `{"text":"use { and } freely"}`, `{"text":"use { and } freely"}`},
		{"escaped quotes", `{"text":"she said \"hi\" {"}`, `{"text":"she said \"hi\" {"}`},
		{"trailing junk after object", `{"a":1}{"b":2}`, `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
			if !json.Valid(got) {
				t.Errorf("extracted span is not valid JSON: %s", got)
			}
		})
	}

	t.Run("no object", func(t *testing.T) {
		for _, in := range []string{"", "plain prose", "```\nnothing here\n```", `{"unterminated": `} {
			if _, err := ExtractJSONObject(in); !errors.Is(err, ErrNoJSONObject) {
				t.Errorf("ExtractJSONObject(%q) error = %v, want ErrNoJSONObject", in, err)
			}
		}
	})
}

func TestStripCodeFences(t *testing.T) {
	in := "```json\n{\"a\": 1}\n```"
	if got := StripCodeFences(in); got != "{\"a\": 1}" {
		t.Errorf("got %q", got)
	}
	if got := StripCodeFences("no fences"); got != "no fences" {
		t.Errorf("got %q", got)
	}
}
