// Package waveform turns media files into amplitude envelopes.
//
// Pipeline decodes a file's first audio track and reduces it to at most
// envelope.Points values. Provider sits in front of it: it answers from the
// on-disk cache when it can and otherwise runs the pipeline in the
// background, writing the result through the cache before handing it back.
// Concurrent requests for the same file share one generation.
package waveform
