// Package catalog persists enriched content records in SQLite.
//
// The Store owns schema initialization and the upsert-by-canonical-URL
// semantics the enrichment pipeline relies on: re-processing an item always
// replaces its metadata in place, and a video that already belongs to a
// playlist keeps that association when re-processed standalone.
//
// Treat this package as the single source of truth for catalog semantics;
// schema changes bump the version in schema.go and users clear the database
// to adopt the new schema.
package catalog
