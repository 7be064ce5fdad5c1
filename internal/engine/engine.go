// Package engine fans work out across goroutine workers, each with its
// own CSV shard file, then merges the shards into the final, headered
// CSV. All workers of a scan share the one Cipher and Extractor passed
// in; no worker gets an instance of its own, and neither value is
// modified after construction. This is the Go-native rendering of the
// design's OS-process worker pool (§4.7): goroutines replace processes
// because Go's runtime already gives each goroutine independent
// stack/heap state and the workers here never write to shared state,
// so the extra isolation of a real OS process buys nothing but overhead
// (see DESIGN.md Open Questions).
package engine

import (
	"fmt"
	"log"
	"math/rand"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"uma-voxdump/internal/audioext"
	"uma-voxdump/internal/cipher"
	"uma-voxdump/internal/csvout"
	"uma-voxdump/internal/manifest"
	"uma-voxdump/internal/masterdb"
	"uma-voxdump/internal/objectreader"
	"uma-voxdump/internal/story"
	"uma-voxdump/internal/umaerr"
)

const testModeLimit = 1000

// Shard splits items into W = max(1, runtime.NumCPU()) contiguous
// chunks, after an in-place shuffle and optional test-mode truncation.
func shard[T any](items []T, testMode bool) [][]T {
	rand.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	if testMode && len(items) > testModeLimit {
		items = items[:testModeLimit]
	}

	workers := max(1, runtime.NumCPU())
	if len(items) == 0 {
		return nil
	}
	chunkSize := (len(items) + workers - 1) / workers

	var chunks [][]T
	for i := 0; i < len(items); i += chunkSize {
		end := min(i+chunkSize, len(items))
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

// SystemEntry is one row of the global system voice map (§3): a
// character_system_text entry already joined against the sheet-audio
// index.
type SystemEntry struct {
	CharacterID int64
	Transcript  string
	CueSheet    string
	CueID       int64
	AcbPath     string
	AwbPath     string
}

// BuildSystemEntries joins character_system_text rows against the
// sheet-audio index, silently dropping entries whose sheet is absent or
// unusable (no acb), per the System voice entry invariant in §3.
func BuildSystemEntries(rows []masterdb.SystemTextRow, sheets map[string]manifest.AudioPair) []SystemEntry {
	var out []SystemEntry
	for _, r := range rows {
		pair, ok := sheets[r.CueSheet]
		if !ok || !pair.Usable() {
			continue
		}
		out = append(out, SystemEntry{
			CharacterID: r.CharacterID,
			Transcript:  r.Text,
			CueSheet:    r.CueSheet,
			CueID:       r.CueID,
			AcbPath:     pair.AcbPath,
			AwbPath:     pair.AwbPath,
		})
	}
	return out
}

// RunSystemScan shards entries across worker goroutines, each extracting
// audio and writing a shard CSV, then merges the shards into
// <outputRoot>/global_system_voices.csv.
func RunSystemScan(entries []SystemEntry, outputRoot string, extractor *audioext.Extractor, testMode bool) error {
	chunks := shard(entries, testMode)
	log.Printf("system scan: processing %d entries across %d workers", len(entries), len(chunks))

	shardPaths := make([]string, len(chunks))
	var wg sync.WaitGroup
	for id, chunk := range chunks {
		shardPath := filepath.Join(outputRoot, fmt.Sprintf("temp_sys_worker_%d.csv", id))
		shardPaths[id] = shardPath

		wg.Add(1)
		go func(id int, chunk []SystemEntry, shardPath string) {
			defer wg.Done()
			if err := systemWorker(id, chunk, shardPath, outputRoot, extractor); err != nil {
				log.Printf("SysWorker %d CRASHED: %v", id, err)
				return
			}
			log.Printf("SysWorker %d done.", id)
		}(id, chunk, shardPath)
	}
	wg.Wait()

	merged, err := csvout.Merge(filepath.Join(outputRoot, "global_system_voices.csv"), csvout.SystemHeader, shardPaths)
	if err != nil {
		return err
	}
	log.Printf("System Scan Complete. Merged %d files.", merged)
	return nil
}

func systemWorker(id int, chunk []SystemEntry, shardPath, outputRoot string, extractor *audioext.Extractor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	w, err := csvout.NewShardWriter(shardPath)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, entry := range chunk {
		outDir := filepath.Join(outputRoot, "system", fmt.Sprint(entry.CharacterID))
		fname := fmt.Sprintf("sys_%d_%s_%d.wav", entry.CharacterID, entry.CueSheet, entry.CueID)
		wavPath := filepath.Join(outDir, fname)

		finalPath, _ := extractor.Extract(entry.AcbPath, entry.AwbPath, int(entry.CueID), wavPath)
		if finalPath == "" {
			continue
		}

		row := csvout.SystemRow{Text: entry.Transcript, CharaID: entry.CharacterID, AudioFilePath: finalPath}
		if err := w.WriteFields(row.Fields()); err != nil {
			return err
		}
	}
	return nil
}

// RunStoryScan shards story packets across worker goroutines. Each
// worker decrypts the timeline (and optional ruby) asset, parses blocks,
// joins ruby, resolves audio, and writes a shard CSV; shards are then
// merged into <outputRoot>/global_story_deep_scan.csv.
func RunStoryScan(packets []manifest.StoryPacket, outputRoot string, cph *cipher.Cipher, objFactory objectreader.Factory, extractor *audioext.Extractor, testMode bool) error {
	chunks := shard(packets, testMode)
	log.Printf("story scan: spawning %d workers for %d stories", len(chunks), len(packets))

	shardPaths := make([]string, len(chunks))
	var wg sync.WaitGroup
	for id, chunk := range chunks {
		shardPath := filepath.Join(outputRoot, fmt.Sprintf("temp_story_worker_%d.csv", id))
		shardPaths[id] = shardPath

		wg.Add(1)
		go func(id int, chunk []manifest.StoryPacket, shardPath string) {
			defer wg.Done()
			if err := storyWorker(id, chunk, shardPath, outputRoot, cph, objFactory, extractor); err != nil {
				log.Printf("StoryWorker %d CRASHED: %v", id, err)
				return
			}
			log.Printf("StoryWorker %d done.", id)
		}(id, chunk, shardPath)
	}
	wg.Wait()

	merged, err := csvout.Merge(filepath.Join(outputRoot, "global_story_deep_scan.csv"), csvout.StoryHeader, shardPaths)
	if err != nil {
		return err
	}
	log.Printf("Story Scan Complete. Merged %d files.", merged)
	return nil
}

func storyWorker(id int, chunk []manifest.StoryPacket, shardPath, outputRoot string, cph *cipher.Cipher, objFactory objectreader.Factory, extractor *audioext.Extractor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	w, err := csvout.NewShardWriter(shardPath)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, packet := range chunk {
		if writeErr := processStoryPacket(packet, outputRoot, cph, objFactory, extractor, w); writeErr != nil {
			log.Printf("[%d] Error %s: %v", id, packet.StoryID, writeErr)
		}
	}
	return nil
}

// processStoryPacket wraps a single story's work in a catch-all so one
// bad story never poisons the worker (§7 propagation policy).
func processStoryPacket(packet manifest.StoryPacket, outputRoot string, cph *cipher.Cipher, objFactory objectreader.Factory, extractor *audioext.Extractor, w *csvout.ShardWriter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	tlBytes, err := cph.DecryptAsset(packet.Timeline.ResolvedPath, uint64(packet.Timeline.EncryptionKey))
	if err != nil {
		return err
	}
	tlBackend, err := objFactory(tlBytes)
	if err != nil {
		return umaerr.AssetDecodef(packet.Timeline.ResolvedPath, err)
	}
	blocks := story.ParseBlocks(objectreader.MonoBehaviours(tlBackend))
	if len(blocks) == 0 {
		return nil
	}

	if packet.Ruby != nil {
		func() {
			defer func() { recover() }() // ruby decode failures are swallowed, §4.5
			rubyBytes, rErr := cph.DecryptAsset(packet.Ruby.ResolvedPath, uint64(packet.Ruby.EncryptionKey))
			if rErr != nil {
				return
			}
			rubyBackend, rErr := objFactory(rubyBytes)
			if rErr != nil {
				return
			}
			story.ApplyRuby(objectreader.MonoBehaviours(rubyBackend), blocks)
		}()
	}

	indices := sortedKeys(blocks)
	for _, idx := range indices {
		block := blocks[idx]
		if block.Text == "" && block.CueID == -1 {
			continue
		}

		audioPath := ""
		hadAudio := false
		var duration float64

		if pair, ok := packet.AudioMap[block.VoiceSheetID]; ok && block.CueID != -1 && pair.AcbPath != "" {
			outDir := filepath.Join(outputRoot, "story", packet.StoryID)
			fname := fmt.Sprintf("%s_%03d.wav", block.VoiceSheetID, block.CueID)
			target := filepath.Join(outDir, fname)

			extractedPath, dur := extractor.Extract(pair.AcbPath, pair.AwbPath, block.CueID, target)
			if extractedPath != "" {
				audioPath = extractedPath
				duration = dur
				hadAudio = true
			} else {
				audioPath = "FAILED"
			}
		}

		row := csvout.NewStoryRow(packet.StoryID, block.BlockIndex, block.CharaID, block.SpeakerName,
			block.Text, block.RubyInfo, block.VoiceSheetID, block.CueID, audioPath, duration, hadAudio)

		if err := w.WriteFields(row.Fields()); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[int]*story.Block) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
