// Package library is the offline catalog and playback backend.
//
// Scan walks a music directory, reads the ID3 tags of every .mp3 file and
// groups tracks into albums and artists. Every .m3u or .m3u8 file in the
// directory becomes a playlist named after the file. The result serves
// catalog lookups without a network connection.
//
// QueueFile is the matching playback sink: queued tracks are appended to
// an extended M3U file that any player can open.
//
// Track ids are "file:" followed by the slash-separated path relative to
// the library root.
package library
