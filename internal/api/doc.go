// Package api hosts the HTTP handlers that front the media listing API.
//
// Handler forwards list and delete requests to an AssetService (the
// Cloudinary client in production), reshapes listings through the catalog
// package and answers with the JSON envelopes the frontend expects:
// {"success": true, ...} on success and {"success": false, "error": "..."}
// on failure. Dependencies are injected at construction time; the package
// holds no globals.
//
// Handlers assume the middleware stack from internal/server has already
// taken care of CORS, request IDs, logging and metrics.
package api
