// Command quizctl administers a quiz deployment: schema migrations,
// question bank imports and role changes.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
