package orchestrator

import (
	"context"
	"testing"
	"time"
)

func TestToolRegistryCallsRegisteredExecutor(t *testing.T) {
	r := NewToolRegistry(2, time.Second)
	r.Register("echo", func(ctx context.Context, args map[string]any) ToolResult {
		return ToolResult{"status": "success", "echo": args["msg"]}
	})

	result, err := r.Call(context.Background(), ToolCall{Name: "echo", Arguments: map[string]any{"msg": "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["echo"] != "hi" {
		t.Errorf("expected echo 'hi', got %+v", result)
	}
}

func TestToolRegistryUnknownToolReturnsToolError(t *testing.T) {
	r := NewToolRegistry(2, time.Second)
	_, err := r.Call(context.Background(), ToolCall{Name: "nope"})
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
	kerr, ok := err.(*KindedError)
	if !ok || kerr.Kind != ErrTool {
		t.Errorf("expected ErrTool KindedError, got %v", err)
	}
}

func TestToolRegistryTimesOutSlowExecutor(t *testing.T) {
	r := NewToolRegistry(2, 20*time.Millisecond)
	r.Register("slow", func(ctx context.Context, args map[string]any) ToolResult {
		<-ctx.Done()
		return ToolResult{"status": "never"}
	})

	_, err := r.Call(context.Background(), ToolCall{Name: "slow"})
	kerr, ok := err.(*KindedError)
	if !ok || kerr.Kind != ErrTimeout {
		t.Errorf("expected ErrTimeout KindedError, got %v", err)
	}
}

func TestToolRegistryNames(t *testing.T) {
	r := NewToolRegistry(2, time.Second)
	r.Register("a", func(context.Context, map[string]any) ToolResult { return nil })
	r.Register("b", func(context.Context, map[string]any) ToolResult { return nil })
	names := r.Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d", len(names))
	}
}
