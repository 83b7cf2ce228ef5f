package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"placetap/internal/tui"
)

var version = "dev"

func main() {
	// Best effort: the API key can also come from the environment directly.
	godotenv.Load()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "fetch":
			if err := runFetch(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "convert":
			if err := runConvert(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "version":
			fmt.Println("placetap " + version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	// No subcommand → launch TUI
	if err := tui.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `placetap - Google Maps listings collector

Usage:
  placetap                 Launch interactive TUI
  placetap fetch [flags]   Run headless fetch
  placetap convert [flags] Convert between dataset formats
  placetap version         Show version

The Places API key is read from PLACES_API_KEY (a .env file is honored).

Run 'placetap fetch --help' or 'placetap convert --help' for flags.
`)
}
