// Package observability provides OpenTelemetry tracing and metrics for
// docket. Telemetry is opt-in: the provider stays inert until an OTLP
// endpoint is configured, so offline Lite Mode runs carry no exporter.
//
// Initialize at startup:
//
//	cfg := observability.DefaultConfig()
//	cfg.Enabled = true
//	cfg.OTLPEndpoint = "otel-collector:4317"
//	provider, err := observability.New(ctx, cfg)
//	defer provider.Shutdown(ctx)
//
// Wrap a pipeline stage:
//
//	ctx, finish := provider.TrackOperation(ctx, "docket.verify",
//		observability.VerificationOperation(caseID, rulesetVersion, score, violations)...)
//	defer func() { finish(err) }()
//
// Attribute helpers (ScanOperation, VerificationOperation,
// ArtifactOperation, CryptoOperation) keep span attributes on the
// docket.* semantic conventions.
package observability
