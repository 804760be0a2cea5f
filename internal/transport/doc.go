// Package transport is the HTTP side of the harness: it turns endpoint
// paths into requests against a connector's base URL and decodes replies.
//
// Every request gets its own deadline. An optional client-side rate limit
// keeps large schemas from flooding a connector. Nothing is retried;
// connectivity problems are reported, never masked.
package transport
