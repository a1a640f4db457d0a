// Package locate turns a station filter into object keys.
//
// Resolver scans the station index and returns the distinct matching
// station identifiers. Locator then range-queries the file index once per
// station, following continuation cursors until each result set is
// exhausted.
package locate
