package main

import (
	"github.com/pgschema/pgmerge/cmd"
	"github.com/pgschema/pgmerge/examples/inventory"
)

func main() {
	cmd.Execute(inventory.Scope())
}
