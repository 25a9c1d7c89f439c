// Package types defines the shared Go types used across the check: the
// ordered Severity enumeration and the UnknownError that carries a fatal,
// "cannot determine" condition up to the single reporting point.
package types
