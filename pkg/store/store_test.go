package store

import (
	"encoding/json"
	"testing"
)

func TestParseKeepsNumberLiterals(t *testing.T) {
	v, err := Parse([]byte(`{"years": 7, "ratio": 0.50, "ok": true, "none": null}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	years, _ := v.Field("years")
	if years.Kind() != KindNumber || years.String() != "7" {
		t.Errorf("Expected number 7, got %s %q", years.Kind(), years.String())
	}

	ratio, _ := v.Field("ratio")
	if ratio.String() != "0.50" {
		t.Errorf("Expected literal '0.50', got %q", ratio.String())
	}

	ok, _ := v.Field("ok")
	if ok.String() != "true" {
		t.Errorf("Expected 'true', got %q", ok.String())
	}

	none, _ := v.Field("none")
	if none.Kind() != KindNull || none.String() != "null" {
		t.Errorf("Expected null, got %s %q", none.Kind(), none.String())
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	_, err := Parse([]byte(`{"a": 1} {"b": 2}`))
	if err == nil {
		t.Error("Expected error for trailing data, got nil")
	}

	_, err = Parse([]byte(`not json`))
	if err == nil {
		t.Error("Expected error for invalid JSON, got nil")
	}
}

func TestWithoutStripsReasonAtAnyDepth(t *testing.T) {
	v, err := Parse([]byte(`{
		"letter": "Dear team",
		"reason": "because",
		"sections": [
			{"title": "intro", "reason": "sets tone"},
			{"title": "body", "details": {"reason": "x", "keep": "y"}}
		]
	}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	stripped := v.Without(ReasonKey)

	if containsKey(stripped, ReasonKey) {
		t.Errorf("Expected no reason key at any depth, got %s", stripped.String())
	}

	letter, _ := stripped.Field("letter")
	if letter.String() != "Dear team" {
		t.Errorf("Expected letter to survive, got %q", letter.String())
	}

	// The original is left untouched.
	if !containsKey(v, ReasonKey) {
		t.Error("Expected original value to keep its reason fields")
	}
}

func TestWithoutTopLevelOnly(t *testing.T) {
	v, err := Parse([]byte(`{"letter": "text", "reason": "because"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	expected := Object(map[string]Value{"letter": Text("text")})
	if !v.Without(ReasonKey).Equal(expected) {
		t.Errorf("Expected %s, got %s", expected.String(), v.Without(ReasonKey).String())
	}
}

func TestValueJSONRoundTripThroughStore(t *testing.T) {
	s := New()
	s.Set("job_description", Text("Build things"))
	nested, err := Parse([]byte(`{"a": {"b": ["x", "y"]}, "n": 3}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	s.Set("analysis", nested)

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded Store
	err = json.Unmarshal(data, &decoded)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	for _, name := range s.Names() {
		got, ok := decoded.Get(name)
		if !ok {
			t.Fatalf("Missing %s after round trip", name)
		}
		want, _ := s.Get(name)
		if !got.Equal(want) {
			t.Errorf("Entry %s: expected %s, got %s", name, want.String(), got.String())
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	inner := Object(map[string]Value{"k": Text("v")})
	s := Store{"outer": Object(map[string]Value{"inner": inner})}

	c := s.Clone()
	outer, _ := c.Get("outer")
	outer.object["inner"] = Text("changed")

	original, _ := s.Get("outer")
	got, _ := original.Field("inner")
	if got.Kind() != KindObject {
		t.Error("Expected clone mutation not to leak into the original")
	}
}

func TestIndexAndField(t *testing.T) {
	arr := Array([]Value{Text("x"), Text("y")})

	item, ok := arr.Index(1)
	if !ok || item.String() != "y" {
		t.Errorf("Expected 'y', got %q (ok=%v)", item.String(), ok)
	}

	_, ok = arr.Index(2)
	if ok {
		t.Error("Expected out of range index to fail")
	}

	_, ok = arr.Field("x")
	if ok {
		t.Error("Expected field lookup on array to fail")
	}
}

func containsKey(v Value, key string) (found bool) {
	switch v.Kind() {
	case KindObject:
		for _, k := range v.Keys() {
			if k == key {
				found = true
				return found
			}
			field, _ := v.Field(k)
			if containsKey(field, key) {
				found = true
				return found
			}
		}
	case KindArray:
		for i := 0; i < v.Len(); i++ {
			item, _ := v.Index(i)
			if containsKey(item, key) {
				found = true
				return found
			}
		}
	}
	return found
}
