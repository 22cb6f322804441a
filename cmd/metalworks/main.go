package main

import (
	"fmt"
	"os"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe()
	case "seed":
		err = runSeed()
	case "export":
		out := ""
		if len(os.Args) > 2 {
			out = os.Args[2]
		}
		err = runExport(out)
	case "import":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: metalworks import <snapshot.json>")
			os.Exit(1)
		}
		err = runImport(os.Args[2])
	case "hash-password":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: metalworks hash-password <password>")
			os.Exit(1)
		}
		err = runHashPassword(os.Args[2])
	case "version":
		fmt.Printf("metalworks %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`metalworks - bilingual site and admin panel for a metalworking company

Usage:
  metalworks <command> [arguments]

Commands:
  serve                 Start the web server
  seed                  Load the bundled demo content into empty collections
  export [file]         Write a JSON snapshot of all content (stdout by default)
  import <file>         Replace all content with a JSON snapshot
  hash-password <pw>    Print the stored hash of a password
  version               Print the metalworks version
  help                  Show this help message

Configuration is read from the environment and an optional .env file.`)
}
