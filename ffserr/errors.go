// Package ffserr defines the sentinel error kinds returned by the
// structured-encryption core. Callers switch on these with errors.Is;
// every returned error wraps one of these values so context can be
// attached with fmt.Errorf("...: %w", ...) without losing the kind.
package ffserr

import "errors"

var (
	// ErrInvalidCharacter is returned when a character is not a member
	// of the declared alphabet and is not a passthrough character.
	ErrInvalidCharacter = errors.New("character not in declared alphabet")

	// ErrFormatMismatch is returned when rule reassembly finds leftover
	// or missing core characters against the recorded format template.
	ErrFormatMismatch = errors.New("format template and core string do not match")

	// ErrTweakLength is returned when a per-call tweak violates the
	// dataset's configured length bounds.
	ErrTweakLength = errors.New("tweak length out of bounds")

	// ErrAlphabetTooSmall is returned when the output alphabet cannot
	// cover the key-number shift or the input domain.
	ErrAlphabetTooSmall = errors.New("output alphabet too small")

	// ErrUnsupported is returned for an unrecognized algorithm id.
	ErrUnsupported = errors.New("unsupported algorithm")

	// ErrKeyUnavailable is returned when decrypt needs a key index that
	// was not supplied in the key set.
	ErrKeyUnavailable = errors.New("key number unavailable in key set")

	// ErrSearchRequiresAllKeys is returned when EncryptForSearch is
	// attempted against a current-key-only context.
	ErrSearchRequiresAllKeys = errors.New("search mode requires the full key set")

	// ErrAuthFailed is returned by the unstructured envelope when the
	// GCM tag fails to verify.
	ErrAuthFailed = errors.New("authentication tag verification failed")

	// ErrMalformedInput is returned for header, base64, or PEM parse
	// failures encountered while constructing a context or envelope.
	ErrMalformedInput = errors.New("malformed input")

	// ErrOverflow is returned by the radix codec when a numeric value
	// does not fit in the requested fixed-length digit string.
	ErrOverflow = errors.New("value overflows requested length")
)
