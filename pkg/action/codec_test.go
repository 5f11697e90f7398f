package action

import (
	"strings"
	"testing"
)

func TestDecodeClick(t *testing.T) {
	data := []byte(`{"kind":"click","button":"left","count":2,"coords":{"x":10,"y":20},"hold_keys":["shift"]}`)

	a, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	click, ok := a.(Click)
	if !ok {
		t.Fatalf("expected Click, got %T", a)
	}
	if click.Button != ButtonLeft || click.Count != 2 {
		t.Fatalf("unexpected click %#v", click)
	}
	if click.Coords == nil || click.Coords.X != 10 || click.Coords.Y != 20 {
		t.Fatalf("coords not decoded: %#v", click.Coords)
	}
	if len(click.HoldKeys) != 1 || click.HoldKeys[0] != "shift" {
		t.Fatalf("hold keys not decoded: %v", click.HoldKeys)
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	if _, err := Decode([]byte(`{"kind":"teleport"}`)); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestEncodeInlinesKindTag(t *testing.T) {
	data, err := Encode(Scroll{Direction: ScrollDown, Count: 3})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), `"kind":"scroll"`) {
		t.Fatalf("kind tag missing: %s", data)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	scroll, ok := decoded.(Scroll)
	if !ok {
		t.Fatalf("expected Scroll, got %T", decoded)
	}
	if scroll.Direction != ScrollDown || scroll.Count != 3 {
		t.Fatalf("round trip mismatch: %#v", scroll)
	}
}

func TestDecodeVariantsWithoutPayload(t *testing.T) {
	for _, kind := range []string{"screenshot", "cursor_position"} {
		a, err := Decode([]byte(`{"kind":"` + kind + `"}`))
		if err != nil {
			t.Fatalf("decode %s: %v", kind, err)
		}
		if string(a.Kind()) != kind {
			t.Fatalf("expected kind %s, got %s", kind, a.Kind())
		}
	}
}

func TestSummaryMasksSensitiveText(t *testing.T) {
	summary := Summary(TypeText{Text: "hunter2", Sensitive: true})
	if strings.Contains(summary, "hunter2") {
		t.Fatalf("sensitive text leaked into summary: %s", summary)
	}
	if !strings.Contains(summary, "sensitive") {
		t.Fatalf("summary should flag sensitive payloads: %s", summary)
	}
}
