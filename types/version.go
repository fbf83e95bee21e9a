package types

// Version is the canonical project version shared by the CLI and the
// checkpoint schema gate.
const Version = "0.3.0"

// CheckpointSchemaVersion is the current serialized run-state schema.
// Version 1 predates the multi-source/dedupe schema and is migrated
// forward on load; versions above the current one refuse to load.
const CheckpointSchemaVersion = 2
