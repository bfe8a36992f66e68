// Package schema provides the shared helpers issuer, prover and verifier all
// use to derive a CL credential-schema's attribute ordering from a
// CredentialSchema, and to validate its invariants.
//
// Go map iteration order is randomised per process; every site that builds a
// CL credential schema from CredentialSchema.Properties must go through
// SortedAttributeNames so that issuance and verification agree on attribute
// index assignment regardless of map iteration order.
package schema

import (
	"sort"

	"credential-hub/internal/errorkit"
	"credential-hub/pkg/credential"
)

// NonCredentialSchemaAttribute is the single fixed attribute name added to
// every CL credential schema alongside the schema's own properties, carrying
// the prover's blinded master secret.
const NonCredentialSchemaAttribute = "master_secret"

// SortedAttributeNames returns the keys of props in ascending lexical order.
// Every CL schema construction site in issuer, prover and verifier must call
// this instead of ranging over the map directly.
func SortedAttributeNames(props map[string]credential.AttributeSchema) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateRequired fails if any name in required is absent from properties,
// per create_credential_schema's stated precondition.
func ValidateRequired(properties map[string]credential.AttributeSchema, required []string) error {
	for _, name := range required {
		if _, ok := properties[name]; !ok {
			return errorkit.AttributeMismatchf("required attribute %q not present in properties", name)
		}
	}
	return nil
}

// ValidateValueKeys fails unless values carries exactly the schema's
// property names, per request_credential's precondition.
func ValidateValueKeys(properties map[string]credential.AttributeSchema, values map[string]string) error {
	if len(values) != len(properties) {
		return errorkit.AttributeMismatchf("expected %d attribute values, got %d", len(properties), len(values))
	}
	for name := range properties {
		if _, ok := values[name]; !ok {
			return errorkit.AttributeMismatchf("missing value for attribute %q", name)
		}
	}
	for name := range values {
		if _, ok := properties[name]; !ok {
			return errorkit.AttributeMismatchf("value supplied for unknown attribute %q", name)
		}
	}
	return nil
}

// ValidateRevealedSubset fails unless every name in revealed is a declared
// property of the schema, per present_proof step 3.
func ValidateRevealedSubset(properties map[string]credential.AttributeSchema, revealed []string) error {
	for _, name := range revealed {
		if _, ok := properties[name]; !ok {
			return errorkit.UnknownAttributef("revealed attribute %q is not declared in schema", name)
		}
	}
	return nil
}
