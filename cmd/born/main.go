// Package main provides the born command, a tool for inspecting .born files
// and pickled parameters.
package main

import (
	"context"

	"github.com/spf13/cobra"
)

func main() {
	cobra.CheckErr(NewCLI().ExecuteContext(context.Background()))
}
