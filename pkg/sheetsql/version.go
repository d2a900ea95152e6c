// Package sheetsql holds build metadata for the sheetsql module.
package sheetsql

// ModulePath is the Go module path.
const ModulePath = "github.com/mesh-intelligence/sheetsql"

// Version is the release version. Builds may override it with
// -ldflags "-X github.com/mesh-intelligence/sheetsql/pkg/sheetsql.Version=...".
var Version = "0.1.0"
