// Package types defines the dataset store interface, identities, query results,
// configuration, and the standard errors shared by every sheetsql component.
//
// Every failure a component returns wraps exactly one of the sentinel errors
// declared here, so callers classify failures with errors.Is instead of
// inspecting messages.
package types
