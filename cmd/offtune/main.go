// Command offtune runs the offline download core and controls a running instance.
//
// Build:
//
//	go build -o build/offtune ./cmd/offtune
//
// Run:
//
//	OFFTUNE_DOWNLOADS_ROOT=~/Music ./build/offtune serve
//	./build/offtune enqueue https://cdn.example/track.mp3 --title "Track"
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
