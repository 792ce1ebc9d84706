// Package user implements the account records of a podium site over the
// schemaless key-value store.
//
// # Data Model
//
// Each account is a hash at user/<id> with the fields username, email,
// realname, passwordHash and level. Two global index hashes enforce
// uniqueness by convention:
//
//   - site/usernames: username -> id
//   - site/emails:    email -> id
//
// Index entries are inserted first-writer-wins and never overwritten; a
// colliding SetUsername or SetEmail is a silent no-op that the caller
// detects by re-checking the field afterward.
//
// # Validity
//
// A user is valid for login when its stored username is non-empty and the
// username index maps that name back to the user's own ID. Freshly created
// accounts are unpopulated (level Pending, no username) and become valid
// through a successful SetUsername; only Remove ends the lifecycle.
//
// # Consistency
//
// The store has no multi-key transactions, so the index+record write
// sequences here are not atomic. A crash between steps can leave a
// dangling index entry or a record missing from an index. This window is
// an accepted property of the data model; Remove tolerates already-missing
// index entries so cleanup converges.
package user
