// Command ndc-test checks a data connector for NDC conformance.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/roach88/ndc-test/internal/cli"
)

func main() {
	// Each run is one trace. Connector requests carry its W3C trace context
	// so connector-side logs can be joined with the run's trace_id.
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	_ = tp.Shutdown(context.Background())

	if err != nil {
		fmt.Fprintln(os.Stderr, "ndc-test:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
