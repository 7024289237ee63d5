// Package task orchestrates batch processing runs. The orchestrator creates
// one task at a time, executes its operations question by question in a
// background goroutine, persists progress after every question, and observes
// cancellation between questions.
package task
