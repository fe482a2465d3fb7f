// Command stagedb inspects a node database: tables, rows and stage
// checkpoints.
package main

import (
	"context"
	"os"
)

func main() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
