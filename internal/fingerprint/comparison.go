package fingerprint

import (
	"fmt"
)

// Compare returns an error naming what changed when the fingerprints differ.
// Fingerprints without per-side hashes only report the mismatch.
func Compare(expected, actual *SchemaFingerprint) error {
	if expected.Hash == actual.Hash {
		return nil
	}

	return fmt.Errorf("schema fingerprint mismatch - expected: %s, actual: %s (%s since the plan was generated)",
		preview(expected.Hash), preview(actual.Hash), changedSide(expected, actual))
}

func changedSide(expected, actual *SchemaFingerprint) string {
	if expected.Desired == "" || expected.Actual == "" {
		return "the model or the database changed"
	}
	modelChanged := expected.Desired != actual.Desired
	databaseChanged := expected.Actual != actual.Actual
	switch {
	case modelChanged && databaseChanged:
		return "the model and the database changed"
	case modelChanged:
		return "the model changed"
	case databaseChanged:
		return "the database changed"
	}
	return "the model or the database changed"
}

func preview(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
