package backend

// CatalogEntry is the display metadata for one configurable backend
// kind, grounded on backend_manager.py's AVAILABLE_BACKENDS /
// BackendConfig: the same name/display_name/description/requires-key
// fields, translated from a dict-of-dataclasses into a Go slice.
type CatalogEntry struct {
	Kind            Kind   `json:"kind"`
	DisplayName     string `json:"display_name"`
	Description     string `json:"description"`
	RequiresAPIKey  bool   `json:"requires_api_key"`
	IsFree          bool   `json:"is_free"`
	APIKeyEnvVar    string `json:"api_key_env_var,omitempty"`
}

// Catalog lists every backend kind the manager's constructor table
// knows how to build, in a fixed display order.
var Catalog = []CatalogEntry{
	{
		Kind:        KindLocalHeuristic,
		DisplayName: "Local Heuristic (Fallback)",
		Description: "Simple rule-based fallback. No AI, no API key needed.",
		IsFree:      true,
	},
	{
		Kind:        KindSubprocess,
		DisplayName: "Local Subprocess Model",
		Description: "Long-lived local model process speaking line-delimited JSON over stdin/stdout. No API key, fully offline.",
		IsFree:      true,
	},
	{
		Kind:           KindHTTPRemote,
		DisplayName:    "Remote HTTP Completion",
		Description:    "Chat-completion style HTTP endpoint (Gemini/OpenAI/Cerebras-shaped). Requires an API key unless the endpoint is gateway-fronted.",
		RequiresAPIKey: true,
		APIKeyEnvVar:   "NACC_BACKEND_API_KEY",
	},
}

// LookupCatalogEntry returns the display metadata for kind, if known.
func LookupCatalogEntry(kind Kind) (CatalogEntry, bool) {
	for _, entry := range Catalog {
		if entry.Kind == kind {
			return entry, true
		}
	}
	return CatalogEntry{}, false
}
