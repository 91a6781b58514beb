// Package media opens media files and decodes their first audio track to
// 16-bit signed little-endian mono PCM.
//
// Two backends implement the same Opener contract: a native one built on pure
// Go codecs (WAV, AIFF, MP3, Ogg Vorbis, plus track probing for MP4/MOV
// containers) and one that streams PCM from an ffmpeg subprocess. The auto
// backend prefers native decoding and falls back to ffmpeg for anything the
// native codecs cannot handle.
package media
