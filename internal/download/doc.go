// Package download fetches object keys from a blob store into a local
// directory tree.
//
// Dispatch derives one Job per key, creates every destination directory
// up front, then fetches with a bounded errgroup. A failed job never
// cancels its siblings: failures are collected into the Report and the
// call returns only after every job is terminal.
package download
