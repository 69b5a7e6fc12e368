// Package version holds the build version, overridable via ldflags.
package version

// Version is the service version reported by the API and the CLI.
var Version = "1.1.0"

// API is the wire protocol generation served under /api/<API>/.
const API = "v1.0"
