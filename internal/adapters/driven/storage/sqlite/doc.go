// Package sqlite provides the SQLite-backed metadata store for document
// records and the conversation log.
package sqlite
