package seed

import (
	_ "embed"
	"strings"
)

//go:embed default.yml
var defaultCatalog string

// Default returns the built-in demo catalog.
func Default() Catalog {
	c, err := Parse(strings.NewReader(defaultCatalog))
	if err != nil {
		panic("seed: built-in catalog is invalid: " + err.Error())
	}
	return c
}
