// Package generation is the boundary between the generation pipeline and an
// external generative content provider such as Gemini.
//
// A Provider performs one raw completion. Client decorates a Provider with a
// per-call timeout, uniform error mapping and logging, and knows how to ask
// for a batch of exercise tasks. ExtractObject and ParseTasks are the single
// place where free-text replies are turned into domain tasks; every failure
// on that path is reported as ErrProviderFailure.
package generation
