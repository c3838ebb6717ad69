package suggest

import (
	"errors"
	"testing"
)

func TestExtractObjectVariants(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "bare object", raw: `{"ops":[]}`, want: `{"ops":[]}`},
		{name: "leading prose", raw: "Sure, here you go:\n{\"ops\":[]}\nhope that helps", want: `{"ops":[]}`},
		{name: "fenced block", raw: "```json\n{\"ops\":[]}\n```", want: `{"ops":[]}`},
		{name: "braces inside strings", raw: `reply: {"summary":"a {b} c","ops":[]}`, want: `{"summary":"a {b} c","ops":[]}`},
		{name: "escaped quotes", raw: `{"summary":"say \"hi\"","ops":[]}`, want: `{"summary":"say \"hi\"","ops":[]}`},
		{name: "invalid then valid object", raw: `{broken} then {"ops":[]}`, want: `{"ops":[]}`},
	}
	for _, tc := range cases {
		got, err := ExtractObject(tc.raw)
		if err != nil {
			t.Fatalf("%s: ExtractObject: %v", tc.name, err)
		}
		if string(got) != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestExtractObjectFailures(t *testing.T) {
	for _, raw := range []string{"", "   ", "no json here", "[1,2,3]", "{never closed"} {
		if _, err := ExtractObject(raw); err == nil {
			t.Fatalf("ExtractObject(%q) should fail", raw)
		} else {
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("ExtractObject(%q) error type %T", raw, err)
			}
		}
	}
}

func TestDecodeValidBatch(t *testing.T) {
	payload, err := Decode([]byte(`{
		"summary": "tidy up",
		"ops": [
			{"op": "update", "id": "t1", "fields": {"title": "X"}, "reason": "clearer"},
			{"op": "complete", "id": "t2"},
			{"op": "add", "id": "tmp_1", "fields": {"title": "New"}}
		]
	}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if payload.Summary != "tidy up" || len(payload.Ops) != 3 {
		t.Fatalf("payload=%+v", payload)
	}
	if payload.Ops[0].Kind != KindUpdate || payload.Ops[0].Fields["title"] != "X" {
		t.Fatalf("op[0]=%+v", payload.Ops[0])
	}
	if payload.Ops[1].Kind != KindComplete || payload.Ops[1].Fields != nil {
		t.Fatalf("op[1]=%+v", payload.Ops[1])
	}
}

// 任一条目违规则整个批次被拒 / one bad op rejects the whole batch
func TestDecodeRejectsWholeBatch(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{name: "missing ops", doc: `{"summary":"x"}`},
		{name: "ops not array", doc: `{"ops":{"op":"update"}}`},
		{name: "op not object", doc: `{"ops":["update"]}`},
		{name: "unknown kind", doc: `{"ops":[{"op":"rename","id":"t1"}]}`},
		{name: "missing id", doc: `{"ops":[{"op":"update","fields":{"title":"X"}}]}`},
		{name: "blank id", doc: `{"ops":[{"op":"delete","id":"  "}]}`},
		{name: "update without fields", doc: `{"ops":[{"op":"update","id":"t1"}]}`},
		{name: "add without fields", doc: `{"ops":[{"op":"add","id":"tmp_1"}]}`},
		{name: "fields not object", doc: `{"ops":[{"op":"update","id":"t1","fields":"title"}]}`},
		{name: "bad op beside good ones", doc: `{"ops":[{"op":"complete","id":"t1"},{"op":"nope","id":"t2"}]}`},
	}
	for _, tc := range cases {
		payload, err := Decode([]byte(tc.doc))
		if err == nil {
			t.Fatalf("%s: Decode should fail", tc.name)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: error type %T", tc.name, err)
		}
		if len(payload.Ops) != 0 {
			t.Fatalf("%s: partial payload leaked: %+v", tc.name, payload)
		}
	}
}

func TestParseEndToEnd(t *testing.T) {
	payload, err := Parse("Here is my plan:\n```json\n" +
		`{"summary":"one tweak","ops":[{"op":"update","id":"t1","fields":{"priority":1}}]}` +
		"\n```")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(payload.Ops) != 1 || payload.Ops[0].ID != "t1" {
		t.Fatalf("payload=%+v", payload)
	}
}
