// Package repository provides the data access layer for the Scriptorium application.
//
// It defines the Repository interface and implements it using BoltDB as the
// underlying storage engine. The repository handles:
//   - Project persistence and queries
//   - Tag based lookups
//   - Mapping of storage errors onto the application error taxonomy
//
// The implementation uses BoltDB for embedded, serverless persistence with
// ACID guarantees and efficient concurrent access.
package repository
