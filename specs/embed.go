package specs

import "embed"

// FS contains the bundled example document and layout.
//
//go:embed *.yaml
var FS embed.FS

const (
	PetsDocument = "pets.yaml"
	PetsLayout   = "pets-layout.yaml"
)
