// Package events decouples request intake from task execution. An intake
// emits a TaskRequestEvent; handlers subscribed to its type turn it into
// background work.
package events
