package apm

// emptyTraceProvider is the no-op fallback used when telemetry is
// disabled or the configured provider is unknown.
type emptyTraceProvider struct{}

func NewEmptyTraceProvider() TraceProvider {
	return emptyTraceProvider{}
}

func (emptyTraceProvider) Stop() error {
	return nil
}
