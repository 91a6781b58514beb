// Package envelope holds the amplitude envelope shared by the waveform cache
// and the decode pipeline. It converts 16-bit PCM to normalized samples and
// reduces sample sequences to a fixed display length.
package envelope
