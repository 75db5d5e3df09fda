// Package gemini provides a generation.Provider backed by Google's Gemini API.
//
// This package is an infrastructure adapter: it translates a generation.Prompt
// into a genai GenerateContent request and returns the concatenated text of
// the first candidate. Timeouts, retries and JSON extraction are handled by
// the generation package, not here.
package gemini
