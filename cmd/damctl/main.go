// damctl is the command-line front end of the dam section optimizer.
//
// Usage:
//
//	damctl optimize --height 60 [--epochs 5000] [--seed 7] [--save] [--pdf out.pdf] [--xlsx out.xlsx]
//	damctl optimize --input design.yaml
//	damctl evaluate --height 60 --n 0.1 --m 0.8 --xi 0.3
//	damctl history list | show <id> | search [--h 60] [--min-k 1.2] | delete <id>
//	damctl report --id <id> [--pdf out.pdf] [--xlsx out.xlsx]
//	damctl batch --xlsx designs.xlsx | --input designs.yaml [--save]
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
