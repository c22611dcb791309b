package model

// Model manages the database schema for the index.
type Model interface {
	// Migrate creates or updates tables in the database.
	Migrate() error
}
