package objectreader

import "testing"

type testRawObject struct {
	typeName string
	attrs    map[string]any
}

func (o *testRawObject) TypeName() string { return o.typeName }

func (o *testRawObject) Attr(name string) (any, bool) {
	v, ok := o.attrs[name]
	return v, ok
}

type testBackend struct {
	objs []RawObject
	err  error
}

func (b testBackend) Objects() ([]RawObject, error) { return b.objs, b.err }

func TestMonoBehavioursFiltersByType(t *testing.T) {
	backend := testBackend{objs: []RawObject{
		&testRawObject{typeName: "MonoBehaviour", attrs: map[string]any{"Text": "a"}},
		&testRawObject{typeName: "Transform", attrs: map[string]any{"Text": "b"}},
	}}

	objs := MonoBehaviours(backend)
	if len(objs) != 1 {
		t.Fatalf("expected 1 MonoBehaviour, got %d", len(objs))
	}
	if objs[0].String("", "Text") != "a" {
		t.Errorf("got %q", objs[0].String("", "Text"))
	}
}

func TestMonoBehavioursReturnsNilOnError(t *testing.T) {
	backend := testBackend{err: errTest}
	if objs := MonoBehaviours(backend); objs != nil {
		t.Errorf("expected nil on backend error, got %v", objs)
	}
}

var errTest = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

func TestObjectStringFallsBackToAlias(t *testing.T) {
	obj := Object{raw: &testRawObject{attrs: map[string]any{"m_Name": "Alias"}}}
	if got := obj.String("", "Name", "m_Name"); got != "Alias" {
		t.Errorf("got %q, want Alias", got)
	}
}

func TestObjectStringReturnsDefaultWhenMissing(t *testing.T) {
	obj := Object{raw: &testRawObject{attrs: map[string]any{}}}
	if got := obj.String("fallback", "Name", "m_Name"); got != "fallback" {
		t.Errorf("got %q, want fallback", got)
	}
}

func TestObjectIntCoercesNumericTypes(t *testing.T) {
	obj := Object{raw: &testRawObject{attrs: map[string]any{"Count": float64(7)}}}
	if got := obj.Int(0, "Count"); got != 7 {
		t.Errorf("got %d, want 7", got)
	}
}

func TestObjectHasChecksAllAliases(t *testing.T) {
	obj := Object{raw: &testRawObject{attrs: map[string]any{"m_Text": "x"}}}
	if !obj.Has("Text", "m_Text") {
		t.Errorf("expected Has to find the m_ prefixed alias")
	}
	if obj.Has("Missing") {
		t.Errorf("expected Has to report false for an absent attribute")
	}
}

func TestObjectListFiltersNilEntries(t *testing.T) {
	raws := []RawObject{&testRawObject{attrs: map[string]any{"k": "v"}}, nil}
	obj := Object{raw: &testRawObject{attrs: map[string]any{"Items": raws}}}
	list := obj.List("Items")
	if len(list) != 1 {
		t.Fatalf("expected nil entries filtered out, got %d items", len(list))
	}
}
