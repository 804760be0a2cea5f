package ndc

// DefaultVersionConstraint is the range of protocol versions the harness
// understands when none is configured.
const DefaultVersionConstraint = "^0.1.0"

// Endpoint paths relative to the connector base URL.
const (
	PathCapabilities = "capabilities"
	PathSchema       = "schema"
	PathQuery        = "query"
	PathExplain      = "explain"
	PathMutation     = "mutation"
)
