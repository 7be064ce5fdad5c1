package story

import (
	"testing"

	"uma-voxdump/internal/objectreader"
)

func rawList(items ...objectreader.RawObject) []objectreader.RawObject { return items }

func TestApplyRubyJoinsEntries(t *testing.T) {
	blocks := map[int]*Block{
		0: {BlockIndex: 0, Text: "hello"},
	}

	rubyDataItem1 := &fakeRawObject{attrs: map[string]any{"CharX": 1.5, "RubyText": "あ"}}
	rubyDataItem2 := &fakeRawObject{attrs: map[string]any{"CharX": 3.0, "RubyText": "い"}}

	dataEntry := &fakeRawObject{attrs: map[string]any{
		"BlockIndex":   0,
		"RubyDataList": rawList(rubyDataItem1, rubyDataItem2),
	}}

	rubyObj := &fakeRawObject{typeName: "MonoBehaviour", attrs: map[string]any{
		"DataArray": rawList(dataEntry),
	}}

	objs := objectreader.MonoBehaviours(fakeBackend{objs: rawList(rubyObj)})
	ApplyRuby(objs, blocks)

	want := "1.5:あ | 3.0:い"
	if blocks[0].RubyInfo != want {
		t.Fatalf("RubyInfo = %q, want %q", blocks[0].RubyInfo, want)
	}
}

func TestApplyRubySkipsUnknownBlockIndex(t *testing.T) {
	blocks := map[int]*Block{0: {BlockIndex: 0, Text: "hello"}}

	dataEntry := &fakeRawObject{attrs: map[string]any{
		"BlockIndex":   99,
		"RubyDataList": rawList(&fakeRawObject{attrs: map[string]any{"CharX": 0.0, "RubyText": "x"}}),
	}}
	rubyObj := &fakeRawObject{typeName: "MonoBehaviour", attrs: map[string]any{"DataArray": rawList(dataEntry)}}

	objs := objectreader.MonoBehaviours(fakeBackend{objs: rawList(rubyObj)})
	ApplyRuby(objs, blocks)

	if blocks[0].RubyInfo != "" {
		t.Fatalf("expected no ruby info, got %q", blocks[0].RubyInfo)
	}
}

func TestFormatCharXWholeNumberGetsTrailingZero(t *testing.T) {
	if got := formatCharX(3.0); got != "3.0" {
		t.Errorf("formatCharX(3.0) = %q, want 3.0", got)
	}
	if got := formatCharX(1.5); got != "1.5" {
		t.Errorf("formatCharX(1.5) = %q, want 1.5", got)
	}
	if got := formatCharX(0); got != "0.0" {
		t.Errorf("formatCharX(0) = %q, want 0.0", got)
	}
}
