package ir

// Version constants for the IR schema and cost engine.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// EngineVersion is the cost engine version recorded with every stored run.
	EngineVersion = "0.1.0"
)
