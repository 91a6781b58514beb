// Package cache persists waveform envelopes on local disk.
//
// Entries are keyed by a digest of the media file's identity (name, size and
// modification time) and stored one file per key under a single cache
// directory. The store never surfaces a broken entry: anything that fails to
// decode is deleted and reported as a miss.
package cache
