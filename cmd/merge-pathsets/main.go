// merge-pathsets folds the worker pathset files of a finished or interrupted
// run into the canonical pathset.txt, the same merge the runner performs at
// the end of a run. Useful when a run died after its workers finished.
package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/bricegnichols/fast-trips/internal/pathset"
)

func main() {
	godotenv.Load()

	outputDir := flag.String("output", ".", "output directory holding the worker pathset files")
	flag.Parse()

	stats, err := pathset.Combine(*outputDir)
	if err != nil {
		log.Fatalf("Failed to combine pathset files: %v", err)
	}

	if stats.FilesMerged == 0 {
		log.Printf("No worker pathset files found in %s; nothing to do", *outputDir)
		return
	}
	log.Printf("Merged %d rows from %d worker files", stats.RowsMerged, stats.FilesMerged)
	if len(stats.Orphans) > 0 {
		log.Printf("WARNING: %d worker files were left unmerged", len(stats.Orphans))
	}
}
