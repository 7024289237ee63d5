package ai

import "context"

// Request is one completion request. Prompt is the system/scene instruction;
// Input is the assembled question text. Scene identifies the transformation
// for the upstream service's own prompt routing and for logs. SourceLanguage
// and TargetLanguage are set by the translate scene only.
type Request struct {
	Scene          string
	Prompt         string
	Input          string
	Locale         string
	SourceLanguage string
	TargetLanguage string
}

// Result carries the raw completion text plus the provider/model that
// produced it, for per-record processing logs.
type Result struct {
	Text     string
	Provider string
	Model    string
}

// Completer sends a single prompt+input request to a text-completion backend
// and returns the raw response text. Implementations own transport concerns:
// per-attempt timeouts, the overall deadline, and retry on rate limiting.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Result, error)
}
