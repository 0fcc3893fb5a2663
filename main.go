// ./main.go
package main

import (
	"github.com/xkilldash9x/typesentry/cmd"
)

// main is the entry point for the typesentry CLI.
func main() {
	cmd.Execute()
}
