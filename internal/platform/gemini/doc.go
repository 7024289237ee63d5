// Package gemini provides a completion backend that calls Google's Gemini
// API directly, as an alternative to routing through the ai-service proxy.
// It is selected with the "gemini" provider in the AI configuration.
package gemini
