// Package finding provides the shared vulnerability finding types used
// across the scan pipeline: the raw findings produced by the detection
// stage, the plain-language interpretations attached by the AI stage,
// and the final scan result handed back to pollers.
//
// Types here are plain data. Scoring lives in pkg/priority and stays
// pure; adapters populate the heuristic weights (ease of fix,
// confidence) at the boundary where the tool output is normalized.
package finding
