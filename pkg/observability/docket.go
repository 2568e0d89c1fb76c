package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Semantic convention attributes for the case pipeline.
var (
	// Case attributes
	AttrCaseID     = attribute.Key("docket.case.id")
	AttrBuildingID = attribute.Key("docket.case.building_id")

	// Intake scan attributes
	AttrScanID        = attribute.Key("docket.scan.id")
	AttrScanFileCount = attribute.Key("docket.scan.file_count")
	AttrScanFlagCount = attribute.Key("docket.scan.flag_count")

	// Verification attributes
	AttrRulesetVersion  = attribute.Key("docket.ruleset.version")
	AttrRuleCode        = attribute.Key("docket.rule.code")
	AttrComplianceScore = attribute.Key("docket.compliance.score")
	AttrViolationCount  = attribute.Key("docket.compliance.violations")

	// Artifact attributes
	AttrArtifactType = attribute.Key("docket.artifact.type")
	AttrArtifactHash = attribute.Key("docket.artifact.hash")

	// Crypto attributes
	AttrCryptoAlgorithm = attribute.Key("docket.crypto.algorithm")
	AttrCryptoOperation = attribute.Key("docket.crypto.operation")
	AttrCryptoKeyID     = attribute.Key("docket.crypto.key_id")
)

// ScanOperation creates attributes for intake scans.
func ScanOperation(caseID, scanID string, fileCount, flagCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrCaseID.String(caseID),
		AttrScanID.String(scanID),
		AttrScanFileCount.Int(fileCount),
		AttrScanFlagCount.Int(flagCount),
	}
}

// VerificationOperation creates attributes for rule verification runs.
func VerificationOperation(caseID, rulesetVersion string, score float64, violations int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrCaseID.String(caseID),
		AttrRulesetVersion.String(rulesetVersion),
		AttrComplianceScore.Float64(score),
		AttrViolationCount.Int(violations),
	}
}

// ArtifactOperation creates attributes for artifact store operations.
func ArtifactOperation(artifactType, hash string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrArtifactType.String(artifactType),
		AttrArtifactHash.String(hash),
	}
}

// CryptoOperation creates attributes for cryptographic operations.
func CryptoOperation(algorithm, operation, keyID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrCryptoAlgorithm.String(algorithm),
		AttrCryptoOperation.String(operation),
		AttrCryptoKeyID.String(keyID),
	}
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus sets the span status based on error.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
	}
}
