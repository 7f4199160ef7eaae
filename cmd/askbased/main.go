package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/askbase/internal/cli"
	"github.com/cloo-solutions/askbase/internal/cli/admin"
)

func main() {
	rootCmd := admin.NewRootCmd()

	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"serve"}
	}
	if cli.HandleHelpJSON(rootCmd, args) {
		return
	}

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
