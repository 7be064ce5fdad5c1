// Package audioext extracts a single cue from a container asset into a
// WAV file, caching on output path and measuring duration without
// reopening the file it just wrote. The container format and its codec
// are external collaborators (§1, §6): this package depends only on the
// narrow Container/Decoder contracts below.
package audioext

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"uma-voxdump/internal/umaerr"
)

var errInvalidWav = errors.New("audioext: not a valid WAV file")

// zstdMagic is the frame magic number, used to detect container payloads
// that were stored zstd-compressed (seen in some regional asset builds)
// before handing them to the codec.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// Track is one cue inside an opened container.
type Track struct {
	CueID int
	Index int
}

// Container is the narrow contract the external acb/awb reader must
// satisfy: list tracks and fetch one track's encoded payload.
type Container interface {
	Tracks() []Track
	FetchPayload(t Track) ([]byte, error)
	Close() error
}

// ContainerOpener opens an acb (+ optional awb) pair under the given HCA
// key material.
type ContainerOpener func(acbPath, awbPath, hcaKeys string) (Container, error)

// Decoder turns an encoded track payload plus a codec hint into WAV bytes.
type Decoder func(payload []byte, codecHint string) ([]byte, error)

// Extractor bundles the container opener and audio decoder collaborators
// with the HCA key material from config.
type Extractor struct {
	Open    ContainerOpener
	Decode  Decoder
	HCAKeys string
}

func New(open ContainerOpener, decode Decoder, hcaKeys string) *Extractor {
	return &Extractor{Open: open, Decode: decode, HCAKeys: hcaKeys}
}

// Extract resolves cueID inside acbPath/awbPath, decodes it to WAV, and
// writes it to outputPath. If outputPath already exists it is returned
// as a cache hit, with duration 0 when its header cannot be read. Any
// other failure returns ("", 0), logging the cause except when the cue
// cannot be resolved, matching the "no raised exception ever escapes"
// policy in §4.6/§7: a failed extraction just downgrades a CSV row's
// AudioFilePath to "FAILED" at the caller.
func (e *Extractor) Extract(acbPath, awbPath string, cueID int, outputPath string) (string, float64) {
	if _, err := os.Stat(outputPath); err == nil {
		duration, err := probeDurationFile(outputPath)
		if err != nil {
			log.Printf("%v", umaerr.AudioExtractf(outputPath, err))
			return outputPath, 0
		}
		return outputPath, duration
	}

	container, err := e.Open(acbPath, awbPath, e.HCAKeys)
	if err != nil {
		log.Printf("%v", umaerr.AudioExtractf(acbPath, err))
		return "", 0
	}
	defer container.Close()

	track, ok := resolveTrack(container.Tracks(), cueID)
	if !ok {
		return "", 0
	}

	payload, err := container.FetchPayload(track)
	if err != nil {
		log.Printf("%v", umaerr.AudioExtractf(fmt.Sprintf("%s cue %d", acbPath, cueID), err))
		return "", 0
	}

	payload, err = decompressIfZstd(payload)
	if err != nil {
		log.Printf("%v", umaerr.AudioExtractf(fmt.Sprintf("%s cue %d", acbPath, cueID), err))
		return "", 0
	}

	wavBytes, err := e.Decode(payload, "hca")
	if err != nil {
		log.Printf("%v", umaerr.AudioExtractf(fmt.Sprintf("%s cue %d", acbPath, cueID), err))
		return "", 0
	}

	duration, err := probeDurationBytes(wavBytes)
	if err != nil {
		log.Printf("%v", umaerr.AudioExtractf(outputPath, err))
		duration = 0
	}

	if err := writeAtomic(outputPath, wavBytes); err != nil {
		log.Printf("%v", umaerr.AudioExtractf(outputPath, err))
		return "", 0
	}

	return outputPath, duration
}

// resolveTrack implements the two-step cue resolution from §4.6: an
// attribute match over tracks' cue_id, falling back to positional index
// when cueID is a valid, non-negative index into the track list.
func resolveTrack(tracks []Track, cueID int) (Track, bool) {
	for _, t := range tracks {
		if t.CueID == cueID {
			return t, true
		}
	}
	if cueID >= 0 && cueID < len(tracks) {
		return tracks[cueID], true
	}
	return Track{}, false
}

// decompressIfZstd returns payload unchanged unless it starts with the
// zstd frame magic, in which case it decodes and returns the decompressed
// stream. Regional builds of the asset archive ship some container
// payloads zstd-wrapped; most do not, so this is a cheap peek, not an
// assumption.
func decompressIfZstd(payload []byte) ([]byte, error) {
	if !bytes.HasPrefix(payload, zstdMagic) {
		return payload, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(payload, nil)
}

func writeAtomic(outputPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(outputPath), err)
	}
	tmp := outputPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s -> %s: %w", tmp, outputPath, err)
	}
	return nil
}
