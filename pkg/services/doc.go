// Package services provides the core business logic for the Scriptorium application.
//
// It includes services for:
//   - Project management: Creating, listing and updating projects and their uploads
//   - Splitting: Previewing and materializing manuscript segmentations
//   - Report pipeline: Analysis, integration and finalization of reports
//   - Agents manifest: Serving and caching the agents manifest
//   - Settings: Persisting operator adjustable settings
//
// The AppService coordinates the individual services behind one facade.
package services
