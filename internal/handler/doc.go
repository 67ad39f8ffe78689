// Package handler is the HTTP surface of the API. Each handler wraps a
// narrow interface over the service it calls, and routes are registered
// in cmd/server.
//
// Bodies go through decodeAndValidate: a malformed body is a 400, a body
// that fails its Validate method is a 422 listing each field. Service
// errors are translated by MapServiceError.
//
// Success responses use two envelopes:
//
//	{"data": {...}, "_links": {...}}                      WriteData
//	{"data": [...], "pagination": {"page", "limit", ...}} WritePage
//
// Listings read page (default 1) and limit (default 20, clamped to 100).
// Non-numeric or non-positive values are rejected with a 400.
package handler
