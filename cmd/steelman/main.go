// Package main implements the steelman CLI, which drives a steel-manning
// discussion session one step at a time against a persistent store.
package main

import (
	"fmt"
	"os"

	"github.com/fyrsmithlabs/steelman/internal/apperrors"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if msg := apperrors.UserMessage(err); apperrors.KindOf(err) != "" && msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(1)
	}
}
