// Package stress implements the integrity-checking load test: decrypt
// and parse every story packet, checksum the result, then reshuffle and
// repeat forever, flagging any story whose checksum drifts from the
// baseline. It is a CPU/allocation workout that doubles as a regression
// detector for the cipher and block-parsing code it shares with the
// story scan.
package stress

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"uma-voxdump/internal/cipher"
	"uma-voxdump/internal/manifest"
	"uma-voxdump/internal/objectreader"
	"uma-voxdump/internal/story"
	"uma-voxdump/internal/umaerr"
)

// Run decrypts and checksums every packet once to build a baseline, then
// loops forever — reshuffling and recomputing — until ctx is cancelled
// (Ctrl+C). Each comparison loop after the baseline gets a fresh ULID,
// included in its checksum-mismatch log lines so they can be told apart
// from other loops'.
func Run(packets []manifest.StoryPacket, cph *cipher.Cipher, objFactory objectreader.Factory) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	workers := max(1, runtime.NumCPU())
	log.Printf("stress: spawning %d workers for %d items", workers, len(packets))

	log.Printf("stress: generating baseline checksums (loop 0)...")
	baseline := checksumAll(packets, cph, objFactory, workers)
	log.Printf("stress: baseline created for %d stories", len(baseline))

	loop := 1
	for {
		select {
		case <-ctx.Done():
			log.Printf("stress: stopped by user after %d loop(s)", loop-1)
			return
		default:
		}

		runID := ulid.Make().String()
		start := time.Now()
		rand.Shuffle(len(packets), func(i, j int) { packets[i], packets[j] = packets[j], packets[i] })

		current := checksumAll(packets, cph, objFactory, workers)

		errors := 0
		for storyID, sum := range current {
			if base, ok := baseline[storyID]; ok && sum != base {
				mismatchErr := umaerr.Integrityf(storyID, fmt.Errorf("expected %d, got %d (run %s)", base, sum, runID))
				log.Printf("[FATAL] %v", mismatchErr)
				errors++
			}
		}

		elapsed := time.Since(start)
		if errors > 0 {
			log.Printf("stress: loop %d FAILED with %d error(s) in %s", loop, errors, elapsed)
		} else {
			log.Printf("stress: loop %d PASSED in %s", loop, elapsed)
		}
		loop++
	}
}

// checksumAll splits packets across worker goroutines and merges their
// per-story checksums into one map.
func checksumAll(packets []manifest.StoryPacket, cph *cipher.Cipher, objFactory objectreader.Factory, workers int) map[string]int64 {
	if len(packets) == 0 {
		return map[string]int64{}
	}
	chunkSize := (len(packets) + workers - 1) / workers

	results := make(chan map[string]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < len(packets); i += chunkSize {
		end := i + chunkSize
		if end > len(packets) {
			end = len(packets)
		}
		chunk := packets[i:end]

		wg.Add(1)
		go func(chunk []manifest.StoryPacket) {
			defer wg.Done()
			results <- checksumChunk(chunk, cph, objFactory)
		}(chunk)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	merged := make(map[string]int64, len(packets))
	for partial := range results {
		for k, v := range partial {
			merged[k] = v
		}
	}
	return merged
}

// checksumChunk computes one checksum per packet: the sum of every
// block's BlockIndex plus the codepoint sum of its Text, SpeakerName,
// and RubyInfo. A packet that fails to decrypt or parse checksums to -1,
// matching the Python reference's broad except-and-flag policy — the
// point of stress mode is to catch corruption, not to crash on it.
func checksumChunk(chunk []manifest.StoryPacket, cph *cipher.Cipher, objFactory objectreader.Factory) map[string]int64 {
	out := make(map[string]int64, len(chunk))
	for _, packet := range chunk {
		out[packet.StoryID] = checksumPacket(packet, cph, objFactory)
	}
	return out
}

func checksumPacket(packet manifest.StoryPacket, cph *cipher.Cipher, objFactory objectreader.Factory) (sum int64) {
	defer func() {
		if r := recover(); r != nil {
			sum = -1
		}
	}()

	tlBytes, err := cph.DecryptAsset(packet.Timeline.ResolvedPath, uint64(packet.Timeline.EncryptionKey))
	if err != nil {
		return -1
	}
	tlBackend, err := objFactory(tlBytes)
	if err != nil {
		log.Printf("%v", umaerr.AssetDecodef(packet.Timeline.ResolvedPath, err))
		return -1
	}
	blocks := story.ParseBlocks(objectreader.MonoBehaviours(tlBackend))

	if packet.Ruby != nil {
		rubyBytes, rErr := cph.DecryptAsset(packet.Ruby.ResolvedPath, uint64(packet.Ruby.EncryptionKey))
		if rErr == nil {
			if rubyBackend, rErr := objFactory(rubyBytes); rErr == nil {
				story.ApplyRuby(objectreader.MonoBehaviours(rubyBackend), blocks)
			}
		}
	}

	var total int64
	for idx, block := range blocks {
		total += int64(idx)
		total += codepointSum(block.Text)
		total += codepointSum(block.SpeakerName)
		total += codepointSum(block.RubyInfo)
	}
	return total
}

func codepointSum(s string) int64 {
	var sum int64
	for _, r := range s {
		sum += int64(r)
	}
	return sum
}
