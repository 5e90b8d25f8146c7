// Package tasks runs the long library operations behind the CLI with progress reporting.
//
// # Core Operations
//
// [LibraryEngine] has two operations:
//
//  1. [LibraryEngine.Import] : Register a batch of tracks
//     - Resolves relative filenames against the music directory
//     - Requires each file to exist and be a regular file
//     - Inserts the track; a failure skips that track and the batch carries on
//
//  2. [LibraryEngine.Check] : Walk the catalog and report tracks whose file is gone
//
// # Progress Reporting
//
// Both operations take an optional channel of [ProgressUpdate]. Sends use select with
// default, so a slow or absent reader never stalls the operation; updates may be dropped.
package tasks
