// Package fingerprint hashes the inputs of a plan so that applying a saved
// plan can detect that the model or the database changed in between.
package fingerprint

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/pgschema/pgmerge/schema"
)

// SchemaFingerprint represents a fingerprint of the desired and actual schema state
type SchemaFingerprint struct {
	Hash    string `json:"hash"`              // SHA256 of both descriptor sets
	Desired string `json:"desired,omitempty"` // SHA256 of the model side alone
	Actual  string `json:"actual,omitempty"`  // SHA256 of the catalog side and row presence
}

// state is what gets hashed. Row presence is included because it decides
// between destructive and row-preserving rebuilds.
type state struct {
	Desired   *schema.Schema `json:"desired"`
	Actual    *schema.Schema `json:"actual"`
	Populated []string       `json:"populated"`
}

// ComputeFingerprint generates a fingerprint for the given schemas
func ComputeFingerprint(desired, actual *schema.Schema) (*SchemaFingerprint, error) {
	s := state{Desired: sorted(desired), Actual: sorted(actual), Populated: []string{}}
	for _, t := range s.Actual.Tables {
		if t.HasRows {
			s.Populated = append(s.Populated, t.Identity.Key())
		}
	}

	hash, err := hashObject(s)
	if err != nil {
		return nil, fmt.Errorf("failed to compute schema hash: %w", err)
	}
	desiredHash, err := hashObject(s.Desired)
	if err != nil {
		return nil, fmt.Errorf("failed to compute desired schema hash: %w", err)
	}
	actualHash, err := hashObject(struct {
		Actual    *schema.Schema `json:"actual"`
		Populated []string       `json:"populated"`
	}{s.Actual, s.Populated})
	if err != nil {
		return nil, fmt.Errorf("failed to compute actual schema hash: %w", err)
	}

	return &SchemaFingerprint{
		Hash:    hash,
		Desired: desiredHash,
		Actual:  actualHash,
	}, nil
}

// sorted returns a copy of s with tables in a stable order.
func sorted(s *schema.Schema) *schema.Schema {
	if s == nil {
		return schema.New()
	}
	return &schema.Schema{Tables: s.SortedTables()}
}

// hashObject computes a SHA256 hash of any object
func hashObject(obj any) (string, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}

// String returns a human-readable representation of the fingerprint
func (f *SchemaFingerprint) String() string {
	if len(f.Hash) >= 8 {
		return fmt.Sprintf("Schema fingerprint: %s", f.Hash[:8])
	}
	return fmt.Sprintf("Schema fingerprint: %s", f.Hash)
}
