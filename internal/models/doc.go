// Package models defines domain entities for the praghad music server.
//
// The package contains two categories of types:
//
// 1. Persistent Entities: rows owned by the collection database
//   - [Track] : an audio file with optional tag fields
//   - [User] : an account whose password doubles as the handshake secret
//   - [Session] : a time-bound token issued by a successful handshake
//
// 2. Request-scoped values: resolved per request and never stored
//   - [Credentials] : the owner id and stored secret used to verify a handshake
//   - [StreamDescriptor] : the file path, size and media type of a playable track
//
// Persistent entities implement [Model] so repositories can validate them before writing.
package models
