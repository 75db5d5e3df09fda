// Command forgectl is the operator CLI of the generation pipeline. It plans
// distributions, validates task files, runs single episodes against the
// configured provider, submits requests to the worker's intake list and
// manages quota balances.
package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitInvalid = 1 // validation found structural errors
	ExitError   = 2 // configuration or runtime error
)

// invalidTasksError reports that a validated task file has errors.
type invalidTasksError struct {
	errors int
}

func (e *invalidTasksError) Error() string {
	return fmt.Sprintf("%d structural error(s) found", e.errors)
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var invalid *invalidTasksError
		if errors.As(err, &invalid) {
			os.Exit(ExitInvalid)
		}
		os.Exit(ExitError)
	}
}
