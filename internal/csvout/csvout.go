// Package csvout defines the two output row shapes and their exact,
// column-order-exact headers (§6), plus the per-shard-file / merge
// pattern the worker pool uses to avoid any writer contending on a
// single output file.
package csvout

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

var SystemHeader = []string{"Text", "CharaId", "AudioFilePath"}

var StoryHeader = []string{
	"StoryId", "BlockIndex", "CharaId", "SpeakerName", "Text", "RubyText",
	"VoiceSheetId", "CueId", "AudioFilePath", "AudioLength", "CharacterPerSecond",
}

// SystemRow is one global_system_voices.csv row.
type SystemRow struct {
	Text          string
	CharaID       int64
	AudioFilePath string
}

func (r SystemRow) Fields() []string {
	return []string{r.Text, strconv.FormatInt(r.CharaID, 10), r.AudioFilePath}
}

// StoryRow is one global_story_deep_scan.csv row.
type StoryRow struct {
	StoryID            string
	BlockIndex         int
	CharaID            int
	SpeakerName        string
	Text               string
	RubyText           string
	VoiceSheetID       string
	CueID              int
	AudioFilePath      string
	AudioLength        float64
	CharacterPerSecond float64
}

// NewStoryRow computes AudioLength and CharacterPerSecond from a raw
// extraction result, per the §6 formatting rules: AudioLength is -1.0
// when no audio was targeted, rounded to 4 decimals otherwise;
// CharacterPerSecond is len(Text)/AudioLength rounded to 2 decimals when
// AudioLength > 0 and Text is non-empty, else -1.0.
func NewStoryRow(storyID string, blockIndex, charaID int, speaker, text, ruby, vsID string, cueID int, audioPath string, rawDuration float64, hadAudio bool) StoryRow {
	audioLength := -1.0
	cps := -1.0
	if hadAudio {
		audioLength = round(rawDuration, 4)
	}
	if audioLength > 0 && text != "" {
		cps = round(float64(len([]rune(text)))/audioLength, 2)
	}
	return StoryRow{
		StoryID:            storyID,
		BlockIndex:         blockIndex,
		CharaID:            charaID,
		SpeakerName:        speaker,
		Text:               text,
		RubyText:           ruby,
		VoiceSheetID:       vsID,
		CueID:              cueID,
		AudioFilePath:      audioPath,
		AudioLength:        audioLength,
		CharacterPerSecond: cps,
	}
}

func round(v float64, places int) float64 {
	mult := math.Pow(10, float64(places))
	return math.Round(v*mult) / mult
}

// formatFloat renders a float the way Python's str(round(x, n)) would:
// the shortest decimal representation with at least one fractional
// digit, so the sentinel reads "-1.0" and not "-1.0000", matching
// formatCharX's approach for the same underlying problem.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (r StoryRow) Fields() []string {
	return []string{
		r.StoryID,
		strconv.Itoa(r.BlockIndex),
		strconv.Itoa(r.CharaID),
		r.SpeakerName,
		r.Text,
		r.RubyText,
		r.VoiceSheetID,
		strconv.Itoa(r.CueID),
		r.AudioFilePath,
		formatFloat(r.AudioLength),
		formatFloat(r.CharacterPerSecond),
	}
}

// ShardWriter writes rows to a single worker's shard file with no
// header, as required by §4.7 so the final merge only needs to prefix
// the header once.
type ShardWriter struct {
	f *os.File
	w *csv.Writer
}

func NewShardWriter(path string) (*ShardWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &ShardWriter{f: f, w: csv.NewWriter(f)}, nil
}

func (s *ShardWriter) WriteFields(fields []string) error {
	return s.w.Write(fields)
}

func (s *ShardWriter) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// Merge concatenates shard files (each already a valid headerless CSV
// body) in the given order into dst, prefixed by header.
func Merge(dst string, header []string, shardPaths []string) (int, error) {
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return 0, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, err
	}

	merged := 0
	for _, path := range shardPaths {
		in, err := os.Open(path)
		if err != nil {
			continue
		}
		if _, err := io.Copy(out, in); err != nil {
			in.Close()
			return merged, fmt.Errorf("merge %s: %w", path, err)
		}
		in.Close()
		os.Remove(path)
		merged++
	}
	return merged, nil
}
