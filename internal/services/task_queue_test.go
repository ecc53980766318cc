package services

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTaskTypeCycle_Constant(t *testing.T) {
	if TaskTypeCycle != "cycle:run" {
		t.Errorf("TaskTypeCycle = %q, expected %q", TaskTypeCycle, "cycle:run")
	}
}

func TestCycleTask_Structure(t *testing.T) {
	tenant := uint(7)
	task := CycleTask{Kind: CycleKindEvaluate, TenantID: &tenant}

	if task.Kind != "evaluate" {
		t.Errorf("Kind = %q, expected evaluate", task.Kind)
	}
	if task.TenantID == nil || *task.TenantID != 7 {
		t.Error("TenantID should be 7")
	}

	global := CycleTask{Kind: CycleKindRevert}
	if global.Kind != "revert" {
		t.Errorf("Kind = %q, expected revert", global.Kind)
	}
	if global.TenantID != nil {
		t.Error("TenantID should be nil for a global cycle")
	}
}

func TestSyncQueue_ProcessesImmediately(t *testing.T) {
	queue := NewSyncQueue()

	var mu sync.Mutex
	var got *CycleTask
	done := make(chan struct{})
	queue.SetProcessor(func(ctx context.Context, task *CycleTask) error {
		mu.Lock()
		got = task
		mu.Unlock()
		close(done)
		return nil
	})

	if err := queue.Enqueue(&CycleTask{Kind: CycleKindEvaluate}); err != nil {
		t.Fatalf("enqueue returned error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sync queue did not process the task")
	}

	mu.Lock()
	defer mu.Unlock()
	if got == nil || got.Kind != CycleKindEvaluate {
		t.Errorf("processor received %+v, expected an evaluate task", got)
	}
}

func TestSyncQueue_NoProcessorDropsTask(t *testing.T) {
	queue := NewSyncQueue()
	if err := queue.Enqueue(&CycleTask{Kind: CycleKindRevert}); err != nil {
		t.Errorf("enqueue without processor should not error, got %v", err)
	}
}

func TestSyncQueue_IsNotAsync(t *testing.T) {
	queue := NewSyncQueue()
	if queue.IsAsync() {
		t.Error("sync queue must report IsAsync() == false")
	}
	if err := queue.Close(); err != nil {
		t.Errorf("close returned error: %v", err)
	}
}
