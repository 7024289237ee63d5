// Package api contains the HTTP handlers for the admin content-processing
// endpoints: batch task lifecycle, synchronous single-question operations,
// and the polish review queue.
package api
