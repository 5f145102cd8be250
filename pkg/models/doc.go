// Package models defines the core data structures used throughout the Scriptorium application.
//
// It includes:
//   - Project: Represents a writing project and its uploaded source text
//   - ReportStatus: Tracks the stages of the report generation pipeline
//   - AppSettings: Persisted provider and prompt settings
//   - ManifestInfo: Metadata extracted from the agents manifest
//
// All models include appropriate serialization tags for database storage
// and JSON API responses.
package models
