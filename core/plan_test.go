package core

import "testing"

func TestPlan_ForwardOnlyTransitions(t *testing.T) {
	p := NewPlan("research topic", []string{"search", "summarize"})

	for i, s := range p.Steps {
		if s.Status != StepPending {
			t.Fatalf("step %d should start pending, got %s", i, s.Status)
		}
	}

	// Completing a pending step skips running and must fail.
	if err := p.CompleteStep(0); err == nil {
		t.Error("completing a pending step should fail")
	}

	if err := p.StartStep(0); err != nil {
		t.Fatalf("start step 0: %v", err)
	}
	// Starting a running step again must fail.
	if err := p.StartStep(0); err == nil {
		t.Error("restarting a running step should fail")
	}

	if err := p.CompleteStep(0); err != nil {
		t.Fatalf("complete step 0: %v", err)
	}
	// No backward transition out of completed.
	if err := p.StartStep(0); err == nil {
		t.Error("restarting a completed step should fail")
	}
	if err := p.CompleteStep(0); err == nil {
		t.Error("re-completing a completed step should fail")
	}

	done, total := p.Progress()
	if done != 1 || total != 2 {
		t.Errorf("progress = %d/%d, want 1/2", done, total)
	}
}

func TestPlan_OutOfRange(t *testing.T) {
	p := NewPlan("g", []string{"only"})
	if err := p.StartStep(-1); err == nil {
		t.Error("negative index should fail")
	}
	if err := p.StartStep(1); err == nil {
		t.Error("index past end should fail")
	}
	if err := p.CompleteStep(5); err == nil {
		t.Error("complete past end should fail")
	}
}

func TestPlan_StepTexts(t *testing.T) {
	steps := []string{"a", "b", "c"}
	p := NewPlan("g", steps)
	got := p.StepTexts()
	if len(got) != 3 {
		t.Fatalf("expected 3 texts, got %d", len(got))
	}
	for i, want := range steps {
		if got[i] != want {
			t.Errorf("step %d = %q, want %q", i, got[i], want)
		}
	}
}
