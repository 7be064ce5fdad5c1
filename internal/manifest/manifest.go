// Package manifest builds the global O(1) lookup tables the rest of the
// pipeline needs: sheet name to (acb, awb) path, voice-sheet-id to (acb,
// awb) path, and story id to ruby asset descriptor, plus the lazy
// storytimeline enumeration. Each is built in exactly one scan over the
// ciphered manifest, per the indexer's "exactly three scans" invariant
// (a fourth, lazy scan produces story packets).
package manifest

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"uma-voxdump/internal/metastore"
)

// AssetDescriptor is an immutable, resolved manifest entry.
type AssetDescriptor struct {
	LogicalName   string
	ContentHash   string
	EncryptionKey int64
	ResolvedPath  string
}

// AudioPair is a sheet's resolved acb/awb pair. Usable iff AcbPath != "".
type AudioPair struct {
	AcbPath string
	AwbPath string
}

func (p AudioPair) Usable() bool { return p.AcbPath != "" }

// StoryPacket bundles a story's timeline, optional ruby asset, and a
// shared reference to the voice-id audio index every worker reads from.
type StoryPacket struct {
	StoryID  string
	Timeline AssetDescriptor
	Ruby     *AssetDescriptor
	AudioMap map[string]AudioPair
}

func resolvePath(datRoot, hash string) string {
	if len(hash) < 2 {
		return filepath.Join(datRoot, hash)
	}
	return filepath.Join(datRoot, hash[:2], hash)
}

// Indexer wraps a metastore connection and the dat root it resolves
// hashes against.
type Indexer struct {
	store   *metastore.Store
	datRoot string
}

func New(store *metastore.Store, datRoot string) *Indexer {
	return &Indexer{store: store, datRoot: datRoot}
}

// SheetAudioIndex runs the `sound/%` scan (scan 1 of §4.2): key is the
// basename stripped of extension, value is the resolved acb/awb pair.
// On a key+slot collision, the last manifest row wins — this matches
// observed manifest behavior and is logged when it overwrites a
// previously non-empty slot.
func (idx *Indexer) SheetAudioIndex() (map[string]AudioPair, error) {
	rows, err := idx.store.ScanLike("sound/%")
	if err != nil {
		return nil, err
	}
	return idx.buildAudioIndex(rows, basenameNoExt)
}

// VoiceAudioIndex runs the `%snd_voi_story_%` scan (scan 2 of §4.2): key
// is the last underscore-separated segment of the basename without
// extension.
func (idx *Indexer) VoiceAudioIndex() (map[string]AudioPair, error) {
	rows, err := idx.store.ScanLike("%snd_voi_story_%")
	if err != nil {
		return nil, err
	}
	return idx.buildAudioIndex(rows, lastSegment)
}

func (idx *Indexer) buildAudioIndex(rows []metastore.Row, keyFn func(name string) string) (map[string]AudioPair, error) {
	out := make(map[string]AudioPair, len(rows))
	for _, r := range rows {
		key := keyFn(r.Name)
		if key == "" {
			continue
		}
		pair := out[key]
		prev := pair

		switch {
		case strings.Contains(r.Name, ".acb"):
			pair.AcbPath = resolvePath(idx.datRoot, r.Hash)
		case strings.Contains(r.Name, ".awb"):
			pair.AwbPath = resolvePath(idx.datRoot, r.Hash)
		default:
			continue
		}

		if (prev.AcbPath != "" && pair.AcbPath != prev.AcbPath) ||
			(prev.AwbPath != "" && pair.AwbPath != prev.AwbPath) {
			log.Printf("manifest: collision on key %q overwrote a previously non-empty slot (%s)", key, r.Name)
		}
		out[key] = pair
	}
	return out, nil
}

// RubyIndex runs the `%ast_ruby_%` scan (scan 3 of §4.2): key is the
// last underscore-separated segment of the full manifest name.
func (idx *Indexer) RubyIndex() (map[string]AssetDescriptor, error) {
	rows, err := idx.store.ScanLike("%ast_ruby_%")
	if err != nil {
		return nil, err
	}
	out := make(map[string]AssetDescriptor, len(rows))
	for _, r := range rows {
		key := lastUnderscoreSegment(r.Name)
		if key == "" {
			continue
		}
		if _, exists := out[key]; exists {
			log.Printf("manifest: ruby index collision on story id %q overwrote a previous entry", key)
		}
		out[key] = AssetDescriptor{
			LogicalName:   r.Name,
			ContentHash:   r.Hash,
			EncryptionKey: r.EncryptionKey,
			ResolvedPath:  resolvePath(idx.datRoot, r.Hash),
		}
	}
	return out, nil
}

// StoryPackets enumerates `%storytimeline_%` (excluding `%resource%`),
// joining each against the ruby index and attaching the shared audio
// map by reference. This is the lazy, fourth scan described in §4.2.
func (idx *Indexer) StoryPackets(rubyIndex map[string]AssetDescriptor, audioMap map[string]AudioPair) ([]StoryPacket, error) {
	rows, err := idx.store.ScanStoryTimelines()
	if err != nil {
		return nil, err
	}

	packets := make([]StoryPacket, 0, len(rows))
	for i, r := range rows {
		storyID := lastUnderscoreSegment(r.Name)
		td := AssetDescriptor{
			LogicalName:   r.Name,
			ContentHash:   r.Hash,
			EncryptionKey: r.EncryptionKey,
			ResolvedPath:  resolvePath(idx.datRoot, r.Hash),
		}

		var ruby *AssetDescriptor
		if rd, ok := rubyIndex[storyID]; ok {
			rd := rd
			ruby = &rd
		}

		packets = append(packets, StoryPacket{
			StoryID:  storyID,
			Timeline: td,
			Ruby:     ruby,
			AudioMap: audioMap,
		})

		if i > 0 && i%1000 == 0 {
			log.Printf("manifest: queued %d/%d story timelines...", i, len(rows))
		}
	}
	return packets, nil
}

func basenameNoExt(name string) string {
	base := filepath.Base(name)
	if dot := strings.Index(base, "."); dot >= 0 {
		base = base[:dot]
	}
	return base
}

func lastSegment(name string) string {
	return lastUnderscoreSegment(basenameNoExt(name))
}

func lastUnderscoreSegment(name string) string {
	parts := strings.Split(name, "_")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

func (d AssetDescriptor) String() string {
	return fmt.Sprintf("%s (%s)", d.LogicalName, d.ResolvedPath)
}
