// Package mocks provides centralized fakes of the generation pipeline's
// collaborators for use in tests.
//
// Each fake has a function field per interface method. When the field is nil
// the fake falls back to canned defaults. Every fake records its calls under a
// mutex so tests can assert on them after concurrent use.
//
// Usage:
//
//	gen := &mocks.MockBatchGenerator{
//	    GenerateBatchFn: func(ctx context.Context, spec generation.BatchSpec) ([]domain.Task, error) {
//	        return tasks, nil
//	    },
//	}
//	ledger := mocks.NewMockQuotaLedger(map[uuid.UUID]int{accountID: 1})
//
// When adding a new fake to this package:
//  1. Create a new file named after the interface being faked
//  2. Implement the fake with function fields for each interface method
//  3. Record calls so tests can verify them
package mocks
