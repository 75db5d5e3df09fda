// Package agents runs semantic review passes over a generated batch and
// repairs flagged tasks.
//
// Each Agent reviews the whole batch through the content provider and
// reports per-task issues. An agent that cannot finish reports itself as
// failed instead of returning an error, so one outage never blocks an
// episode. AutoFixer resubmits each flagged task with its issues and accepts
// the replacement only if it passes the structural validator on its own.
package agents
