package audioext

import (
	"bytes"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// probeDuration measures a WAV file's duration in seconds from its RIFF
// fmt/data chunks, without decoding PCM samples — matching go-audio/wav's
// Decoder, the same encoder/decoder pair the teacher used to write WAV
// output in processor.go.
func probeDuration(r io.ReadSeeker) (float64, error) {
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return 0, errInvalidWav
	}
	d, err := dec.Duration()
	if err != nil {
		return 0, err
	}
	return d.Seconds(), nil
}

func probeDurationFile(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return probeDuration(f)
}

func probeDurationBytes(data []byte) (float64, error) {
	return probeDuration(bytes.NewReader(data))
}
