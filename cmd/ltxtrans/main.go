// Command ltxtrans translates LaTeX documents fragment by fragment with a
// chat model, keeping the LaTeX structure of every fragment intact.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
