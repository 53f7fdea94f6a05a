package trace

import (
	"testing"

	"fern/internal/syntax"
)

func TestReconstructPipe(t *testing.T) {
	stages := pipeStages(&syntax.Ident{Name: "x"}, "f", "g", "h")
	chain := ReconstructPipe(stages[2])
	if chain == nil {
		t.Fatal("ReconstructPipe returned nil for a tagged call")
	}
	if chain.Leading {
		t.Error("chain with a bare head should not be leading")
	}
	if got := len(chain.Stages); got != 3 {
		t.Fatalf("stages = %d, want 3", got)
	}
	for i, want := range []string{"f", "g", "h"} {
		if got := syntax.CalleeName(chain.Stages[i]); got != want {
			t.Errorf("stage %d = %q, want %q", i, got, want)
		}
	}
	if id, ok := chain.Head.(*syntax.Ident); !ok || id.Name != "x" {
		t.Errorf("head = %v, want ident x", chain.Head)
	}
}

func TestReconstructPipeLeading(t *testing.T) {
	lead := mkCall("f")
	stage := &syntax.Call{
		Fn:   &syntax.Ident{Name: "g"},
		Args: []syntax.Expr{lead},
		Pipe: syntax.PipeStage,
	}
	chain := ReconstructPipe(stage)
	if chain == nil {
		t.Fatal("ReconstructPipe returned nil")
	}
	if !chain.Leading {
		t.Error("chain starting with a call should be leading")
	}
	if got := len(chain.Stages); got != 2 {
		t.Fatalf("stages = %d, want 2", got)
	}
	if chain.Stages[0] != lead {
		t.Error("leading call should be the first stage")
	}
}

func TestReconstructPipeRejectsOrdinaryCall(t *testing.T) {
	if got := ReconstructPipe(mkCall("f")); got != nil {
		t.Errorf("ReconstructPipe = %v, want nil for untagged call", got)
	}
	if got := ReconstructPipe(nil); got != nil {
		t.Errorf("ReconstructPipe(nil) = %v, want nil", got)
	}
}

func TestInvalidArgumentErrorMessage(t *testing.T) {
	err := &InvalidArgumentError{Option: "max frames", Mode: ModeCollapse}
	want := `max frames cannot be combined with simplify mode "collapse"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
