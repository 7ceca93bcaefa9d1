// Package store persists the Spotify refresh token between runs.
//
// A [Store] holds at most one record under a fixed key. A miss is reported with ok=false and is
// never an error; a record that cannot be decoded is treated as absent and removed.
//
// Backends:
//   - [KeyringStore] : the OS keychain through go-keyring
//   - [FileStore] : a JSON file readable only by the owner
//   - [SQLiteStore] : the credentials table of the app database
//   - [MemoryStore] : process memory, for tests and ephemeral runs
package store
