// Package handlers provides HTTP request handlers for the Scriptorium API.
//
// The API includes endpoints for:
//   - Service identity and health checks
//   - Project workspaces and manuscript uploads
//   - Split previews and execution
//   - Report pipeline triggers, status and final report access
//   - Persisted application settings and agents manifest reloads
//
// All handlers include proper error handling, request validation,
// and JSON response formatting.
package handlers
