// Package ai defines the boundary between the application core and the
// external text-completion service. It holds the Completer interface the
// operation executors talk to, the error taxonomy for upstream failures, and
// the tiered parser that repairs the malformed JSON the upstream is known to
// emit (fenced code blocks, truncated strings, missing closing braces).
package ai
