package api

// EngineVersion identifies the resolution engine build. Bump on any change to
// the derivation algorithm or payout tables; verifiers pin against it.
const EngineVersion = "1.0.0"
