// Package migrate brings a database from its stored schema version to the
// latest defined migration. The stored version lives in a reserved singleton
// table and is updated inside the same transaction as the migration it
// records, so a crash or failure never leaves a half-applied migration
// recorded as done.
package migrate
