package tracing

import (
	"testing"

	"github.com/opentracing/opentracing-go"
)

func TestDisabledTracerKeepsGlobal(t *testing.T) {
	tracer, closeFn, err := InitTracer(Config{})
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	if tracer != opentracing.GlobalTracer() {
		t.Fatalf("disabled tracing must not replace the global tracer")
	}
	closeFn()
}
