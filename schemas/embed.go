// Package schemas bundles the default image sidecar schema.
package schemas

import _ "embed"

// SidecarPath is the conventional on-disk location of the sidecar schema.
const SidecarPath = "schemas/image_sidecar.schema.json"

// Sidecar is the default sidecar schema, used when no schema file is configured.
//
//go:embed image_sidecar.schema.json
var Sidecar []byte
