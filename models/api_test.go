package models

import (
	"sync"
	"testing"
)

func TestBatchJobConcurrentRecordAndSnapshot(t *testing.T) {
	const n = 50
	job := NewBatchJob("batch-test1", n, "")

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			job.RecordResult(idx, &ProductRecord{Title: "Recorded Item", Price: 1})
		}(i)
	}
	// Poll snapshots while workers write; run under -race this catches
	// unsynchronized access to the job's fields.
	for i := 0; i < 20; i++ {
		snap := job.Snapshot()
		if snap.Completed < 0 || snap.Completed > n {
			t.Fatalf("Completed = %d out of range", snap.Completed)
		}
	}
	wg.Wait()
	job.Finish()

	snap := job.Snapshot()
	if snap.Status != "completed" {
		t.Errorf("Status = %q, want completed", snap.Status)
	}
	if snap.Completed != n || snap.Total != n {
		t.Errorf("Completed/Total = %d/%d, want %d/%d", snap.Completed, snap.Total, n, n)
	}
	for i, rec := range snap.Results {
		if rec == nil {
			t.Fatalf("Results[%d] is nil", i)
		}
	}
}
