// Package server implements the artifact mirror: a gin server that exposes a
// local artifact directory in repository layout so other machines can use it
// as their artifact repository.
//
// Routes:
//
//	GET  /              service info
//	GET  /health        directory availability
//	GET  /versions      catalog entries and whether each artifact is present
//	GET  /repo/*path    artifact download (HEAD supported)
//	GET  /metrics       prometheus metrics, when metrics are configured
package server
