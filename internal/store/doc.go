// Package store persists the snippet tree, the utterance cache, and the
// voice catalog in a single SQLite database with a versioned schema.
package store
