// Command sheets-check verifies the Sheets mirror credentials without
// writing anything: it connects with the configured service account and
// prints the spreadsheet title and tabs.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"unibudget/internal/cli"
	"unibudget/internal/mirror/google"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("sheets-check", os.Getenv("LOG_LEVEL"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := google.NewFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Sheets client", "error", err)
		os.Exit(1)
	}

	title, sheets, err := client.Describe(ctx)
	if err != nil {
		logger.Error("Spreadsheet is not accessible", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Spreadsheet: %s\n", title)
	fmt.Println("Sheets:")
	for _, name := range sheets {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("Mirror credentials look good.")
}
