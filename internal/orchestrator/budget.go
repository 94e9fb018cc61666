package orchestrator

// #region constants

// Per-request bounds. The stage graph has a single corrective edge
// (Validate -> Fallback), so no request can exceed them.
const (
	maxAgentCalls    = 1
	maxFallbackCalls = 2
	maxTransitions   = 4 // non-terminal stage changes
)

// #endregion
