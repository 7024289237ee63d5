// Package aiservice implements the ai.Completer interface against the
// ai-service HTTP completion endpoint. It owns transport-level retry: rate
// limiting is retried with exponential backoff while the remaining time
// budget allows it, quota exhaustion and malformed requests are not retried.
package aiservice
