// Package types defines the Conn, Cursor, and Tx capability interfaces, the
// Migration and Source contracts, the Config for driver bindings, and the
// standard errors shared by all sqlbridge packages.
package types
