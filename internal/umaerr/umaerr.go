// Package umaerr defines the small error taxonomy shared across the
// decrypt/index/extract pipeline, so callers can distinguish a missing
// file from a cipher failure from a bad asset without parsing strings.
package umaerr

import "fmt"

// Kind is one of the taxonomy buckets from the error handling design.
type Kind string

const (
	NotFound    Kind = "not_found"
	CipherOpen  Kind = "cipher_open"
	AssetDecode Kind = "asset_decode"
	AudioExtract Kind = "audio_extract"
	Integrity   Kind = "integrity"
)

// Error wraps an underlying cause with a Kind and the path/id it concerns,
// mirroring the wrap-with-context style used throughout api/faceit.go.
type Error struct {
	Kind   Kind
	Target string // file path, story id, or other identifying context
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Target)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Target, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, target string, cause error) *Error {
	return &Error{Kind: kind, Target: target, Err: cause}
}

func NotFoundf(target string, cause error) *Error {
	return New(NotFound, target, cause)
}

func CipherOpenf(target string, cause error) *Error {
	return New(CipherOpen, target, cause)
}

func AssetDecodef(target string, cause error) *Error {
	return New(AssetDecode, target, cause)
}

func AudioExtractf(target string, cause error) *Error {
	return New(AudioExtract, target, cause)
}

func Integrityf(target string, cause error) *Error {
	return New(Integrity, target, cause)
}

// Is supports errors.Is(err, umaerr.NotFound) style checks by comparing Kind.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == te.Kind
}
