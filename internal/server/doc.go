// Package server implements the HTTP API: the same-origin transcription
// relay, upload queue endpoints, history CRUD, and monitoring/management
// endpoints.
package server
