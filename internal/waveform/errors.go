package waveform

import "errors"

// ErrGenerationFailed is reported when a file's envelope could not be
// produced. The underlying cause is wrapped.
var ErrGenerationFailed = errors.New("waveform generation failed")
