package story

import (
	"testing"

	"uma-voxdump/internal/objectreader"
)

// fakeRawObject is a minimal objectreader.RawObject for tests.
type fakeRawObject struct {
	typeName string
	attrs    map[string]any
}

func (f *fakeRawObject) TypeName() string { return f.typeName }

func (f *fakeRawObject) Attr(name string) (any, bool) {
	v, ok := f.attrs[name]
	return v, ok
}

func monoObj(attrs map[string]any) objectreader.Object {
	backend := fakeBackend{objs: []objectreader.RawObject{&fakeRawObject{typeName: "MonoBehaviour", attrs: attrs}}}
	return objectreader.MonoBehaviours(backend)[0]
}

type fakeBackend struct {
	objs []objectreader.RawObject
	err  error
}

func (f fakeBackend) Objects() ([]objectreader.RawObject, error) { return f.objs, f.err }

func TestParseBlocksReconstructsIndices(t *testing.T) {
	// Three blocks chained by NextBlock: block 0 -> 1 -> 2, block 2 is terminal (NextBlock == -1).
	objs := []objectreader.Object{
		monoObj(map[string]any{"Text": "first line", "NextBlock": 1}),
		monoObj(map[string]any{"Text": "second line", "NextBlock": 2}),
		monoObj(map[string]any{"Text": "third line", "NextBlock": -1}),
	}

	blocks := ParseBlocks(objs)

	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	if blocks[0].Text != "first line" {
		t.Errorf("block 0: got %q", blocks[0].Text)
	}
	if blocks[1].Text != "second line" {
		t.Errorf("block 1: got %q", blocks[1].Text)
	}
	if blocks[2].Text != "third line" {
		t.Errorf("block 2 (terminal): got %q", blocks[2].Text)
	}
}

func TestParseBlocksIgnoresObjectsWithoutText(t *testing.T) {
	objs := []objectreader.Object{
		monoObj(map[string]any{"SomeOtherField": 1}),
		monoObj(map[string]any{"Text": "only block", "NextBlock": -1}),
	}

	blocks := ParseBlocks(objs)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Text != "only block" {
		t.Errorf("got %q", blocks[0].Text)
	}
}

func TestParseBlocksEmpty(t *testing.T) {
	blocks := ParseBlocks(nil)
	if len(blocks) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(blocks))
	}
}

func TestParseBlocksUsesMPrefixedAliases(t *testing.T) {
	objs := []objectreader.Object{
		monoObj(map[string]any{"m_Text": "aliased line", "m_NextBlock": -1, "m_CharaId": 42}),
	}
	blocks := ParseBlocks(objs)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Text != "aliased line" {
		t.Errorf("got text %q", blocks[0].Text)
	}
	if blocks[0].CharaID != 42 {
		t.Errorf("got CharaID %d", blocks[0].CharaID)
	}
}
