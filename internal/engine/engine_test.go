package engine

import (
	"testing"

	"uma-voxdump/internal/manifest"
	"uma-voxdump/internal/masterdb"
	"uma-voxdump/internal/story"
)

func TestBuildSystemEntriesDropsUnusableSheets(t *testing.T) {
	rows := []masterdb.SystemTextRow{
		{CharacterID: 1, Text: "hi", CueSheet: "sheet_a", CueID: 1},
		{CharacterID: 2, Text: "bye", CueSheet: "sheet_missing", CueID: 2},
		{CharacterID: 3, Text: "", CueSheet: "sheet_noacb", CueID: 3},
	}
	sheets := map[string]manifest.AudioPair{
		"sheet_a":      {AcbPath: "/dat/aa/aaaa", AwbPath: "/dat/bb/bbbb"},
		"sheet_noacb":  {AwbPath: "/dat/cc/cccc"},
	}

	entries := BuildSystemEntries(rows, sheets)
	if len(entries) != 1 {
		t.Fatalf("expected 1 usable entry, got %d", len(entries))
	}
	if entries[0].CharacterID != 1 {
		t.Errorf("got CharacterID %d, want 1", entries[0].CharacterID)
	}
}

func TestShardSplitsAcrossAllItems(t *testing.T) {
	items := make([]int, 37)
	for i := range items {
		items[i] = i
	}

	chunks := shard(items, false)

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total != 37 {
		t.Errorf("expected all 37 items across chunks, got %d", total)
	}
}

func TestShardTruncatesInTestMode(t *testing.T) {
	items := make([]int, 2500)
	chunks := shard(items, true)

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total != testModeLimit {
		t.Errorf("expected %d items in test mode, got %d", testModeLimit, total)
	}
}

func TestShardEmptyInput(t *testing.T) {
	if chunks := shard([]int{}, false); chunks != nil {
		t.Errorf("expected nil chunks for empty input, got %v", chunks)
	}
}

func TestSortedKeysOrdersAscending(t *testing.T) {
	blocks := map[int]*story.Block{
		5: {BlockIndex: 5},
		1: {BlockIndex: 1},
		3: {BlockIndex: 3},
	}
	got := sortedKeys(blocks)
	want := []int{1, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %d, want %d", i, got[i], want[i])
		}
	}
}
