package main

import (
	"fmt"
	"os"

	"github.com/pevans/listwatch/config"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Parse global flags
	configPath := getEnv("LISTWATCH_CONFIG", "")
	if configPath == "" {
		path, err := config.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		configPath = path
	}

	// Get subcommand
	subcommand := os.Args[1]

	switch subcommand {
	case "run":
		handleRun(configPath, os.Args[2:])
	case "once":
		handleOnce(configPath, os.Args[2:])
	case "serve":
		handleServe(configPath, os.Args[2:])
	case "records":
		if len(os.Args) < 3 {
			printRecordsUsage()
			os.Exit(1)
		}
		handleRecordsCommand(os.Args[2], configPath, os.Args[3:])
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("listwatch - Listing site watcher")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  listwatch <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run        Run collection cycles on a schedule and serve the API")
	fmt.Println("  once       Run a single collection cycle")
	fmt.Println("  serve      Serve the API over the stored records")
	fmt.Println("  records    Inspect stored records")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  LISTWATCH_CONFIG        Path to config file (default: ~/.listwatch/config.yaml)")
	fmt.Println("  LISTWATCH_PROXY         Proxy URL for all requests")
	fmt.Println("  LISTWATCH_STORAGE_TYPE  Store backend: json, sqlite, postgres, mongo")
	fmt.Println("  LISTWATCH_STORAGE_PATH  File of the json and sqlite backends")
	fmt.Println("  LISTWATCH_STORAGE_DSN   Connection string of the postgres and mongo backends")
	fmt.Println("  LISTWATCH_END_PAGE      Last listing page to scan")
	fmt.Println("  LISTWATCH_API_ADDR      API listen address (empty disables the API in run)")
}

func printRecordsUsage() {
	fmt.Println("listwatch records - Inspect stored records")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  listwatch records <action> [arguments]")
	fmt.Println()
	fmt.Println("Actions:")
	fmt.Println("  list       List stored records")
	fmt.Println("  show       Show one record")
	fmt.Println("  delete     Delete one record")
	fmt.Println("  help       Show this help message")
}
