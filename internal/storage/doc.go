// Package storage persists the operator audit trail: one entry per
// /set or /unset, successful or not. Subscriptions themselves live only in
// memory.
//
// Two drivers exist. "file" appends JSON Lines next to the configured path;
// "sqlite" writes to a SQLite database through the pure-Go modernc driver.
package storage
