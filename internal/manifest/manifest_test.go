package manifest

import (
	"path/filepath"
	"testing"

	"uma-voxdump/internal/metastore"
)

func TestResolvePath(t *testing.T) {
	got := resolvePath("/dat", "abcdef1234567890")
	want := filepath.Join("/dat", "ab", "abcdef1234567890")
	if got != want {
		t.Errorf("resolvePath() = %q, want %q", got, want)
	}
}

func TestResolvePathShortHash(t *testing.T) {
	got := resolvePath("/dat", "a")
	want := filepath.Join("/dat", "a")
	if got != want {
		t.Errorf("resolvePath() = %q, want %q", got, want)
	}
}

func TestBuildAudioIndexLastWins(t *testing.T) {
	idx := &Indexer{datRoot: "/dat"}
	rows := []metastore.Row{
		{Name: "sound/voice_sheet.acb", Hash: "aaaaaaaa"},
		{Name: "sound/voice_sheet.awb", Hash: "bbbbbbbb"},
		{Name: "sound/voice_sheet.acb", Hash: "cccccccc"}, // overwrites the first acb
	}

	got, err := idx.buildAudioIndex(rows, basenameNoExt)
	if err != nil {
		t.Fatal(err)
	}

	pair, ok := got["voice_sheet"]
	if !ok {
		t.Fatalf("expected key voice_sheet in index")
	}
	if pair.AcbPath != resolvePath("/dat", "cccccccc") {
		t.Errorf("AcbPath = %q, want the last-written hash", pair.AcbPath)
	}
	if pair.AwbPath != resolvePath("/dat", "bbbbbbbb") {
		t.Errorf("AwbPath = %q, want the awb entry preserved across the acb overwrite", pair.AwbPath)
	}
}

func TestBuildAudioIndexSkipsUnrecognizedExtensions(t *testing.T) {
	idx := &Indexer{datRoot: "/dat"}
	rows := []metastore.Row{
		{Name: "sound/voice_sheet.txt", Hash: "zzzzzzzz"},
	}
	got, err := idx.buildAudioIndex(rows, basenameNoExt)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no entries for an unrecognized extension, got %d", len(got))
	}
}

func TestBasenameNoExt(t *testing.T) {
	cases := map[string]string{
		"sound/snd_voi_story_00001.acb": "snd_voi_story_00001",
		"a/b/c.awb":                     "c",
		"noext":                         "noext",
	}
	for in, want := range cases {
		if got := basenameNoExt(in); got != want {
			t.Errorf("basenameNoExt(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLastUnderscoreSegment(t *testing.T) {
	if got := lastUnderscoreSegment("storytimeline_04001_01"); got != "01" {
		t.Errorf("got %q, want 01", got)
	}
	if got := lastUnderscoreSegment("noseparators"); got != "noseparators" {
		t.Errorf("got %q, want noseparators", got)
	}
}

func TestLastSegment(t *testing.T) {
	if got := lastSegment("path/snd_voi_story_04001_01.awb"); got != "01" {
		t.Errorf("got %q, want 01", got)
	}
}
