// Package api exposes the translation pipeline over HTTP
// with gin. Every error body carries the error text and
// a stable kind so clients can tell a project that has
// no data yet from one whose sync failed.
package api
