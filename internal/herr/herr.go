// Package herr defines the error kinds shared across hoover's pipeline
// stages and the exit-code policy the CLI maps them to.
package herr

import "errors"

// Sentinel error kinds, wrapped with context via fmt.Errorf("...: %w", Kind)
// and unwrapped with errors.Is at the boundaries that need to react to them.
var (
	ErrAudioDeviceLost = errors.New("audio device lost")
	ErrRingOverflow    = errors.New("ring buffer overflow")
	ErrSttTransient    = errors.New("stt backend transient failure")
	ErrSttFatal        = errors.New("stt backend fatal failure")
	ErrSpeakerModel    = errors.New("speaker model error")
	ErrMissingAudio    = errors.New("missing audio for enrollment")
	ErrInvalidKey      = errors.New("invalid udp key")
	ErrFrameAuth       = errors.New("udp frame authentication failure")
	ErrFirewallBackend = errors.New("firewall backend error")
	ErrWriterIO        = errors.New("markdown writer io error")
)

// ExitCode maps an error produced anywhere in the pipeline to the process
// exit code defined in the CLI surface: 0 success, 1 generic failure,
// 2 configuration error, 3 audio-device error, 4 authentication failure.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrAudioDeviceLost):
		return 3
	case errors.Is(err, ErrSttFatal):
		return 2
	case errors.Is(err, ErrFrameAuth):
		return 4
	default:
		return 1
	}
}
