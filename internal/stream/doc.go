// Package stream serves byte ranges of audio files.
//
// [ParseRange] turns a Range header into a [ByteRange], [ChunkReader] walks that
// range in chunks of at most [ChunkSize] bytes, and [Responder] ties both to a
// track lookup to produce status, headers and body for the play endpoint.
//
// Memory per stream is one chunk buffer regardless of file size.
package stream
