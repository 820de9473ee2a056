// Package server hosts the media API behind a chi router.
//
// Every request passes the same middleware chain: request IDs, structured
// request logging, Prometheus metrics keyed by route pattern, security
// headers, the CORS allow-list and panic recovery. Run owns the listener
// lifecycle, including optional TLS and graceful shutdown.
package server
