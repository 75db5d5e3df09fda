// Package domain contains the exercise task model and the request, result
// and issue types shared by the generation pipeline. It has no dependencies
// on infrastructure: providers, stores and transports live elsewhere.
package domain
