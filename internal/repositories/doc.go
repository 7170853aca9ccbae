// Package repositories implements SQLite persistence.
//
// Key Implementations:
//   - [SessionRepository] : server-side session values keyed by session identifier, with expiry
//
// The schema lives in internal/shared/sql and is applied by [shared.RunMigrations].
package repositories
