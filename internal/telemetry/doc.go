// Package telemetry installs OpenTelemetry trace and metric providers for
// the steelman CLI.
//
// # Usage
//
//	tel, err := telemetry.New(ctx, cfg.Telemetry, telemetry.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Components never hold a *Telemetry. They call otel.Tracer and otel.Meter,
// which resolve to the providers installed here once New has run.
//
// # Configuration
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc          # or http/protobuf
//	  sample_rate: 1.0
//	  metrics: true
//	  export_interval: "15s"
//
// # Error Handling
//
// Exporter failures never stop the CLI. The instance is marked degraded,
// the failure is logged, and the global no-op providers stay in place.
//
// # Testing
//
//	tt := telemetry.NewTestTelemetry()
//	tt.Install(t)
//	// ... exercise code that calls otel.Tracer / otel.Meter ...
//	tt.AssertSpanExists(t, "progress.SaveCheckpoint")
//	tt.AssertCounter(t, "steelman.progress.checkpoints_total", 1)
package telemetry
