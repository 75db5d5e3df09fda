// Package task runs generation episodes in the background. Submitted tasks
// are persisted before they are queued so that a restarted worker can recover
// pending work and reset tasks that were stuck in processing.
package task
