package sdk

// SupportedSchemaMajor is the major tool set version this client speaks.
const SupportedSchemaMajor = "1"
