// Command schema-generator writes the devsync JSON schemas to schema/.
package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/devsync/config"
	"github.com/grovetools/devsync/pkg/models"
)

func main() {
	outputDir := "schema"
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		log.Fatalf("Error creating schema directory: %v", err)
	}

	outputs := []struct {
		name     string
		generate func() ([]byte, error)
	}{
		{"devsync.schema.json", config.GenerateSchema},
		{"wire.schema.json", models.GenerateSchema},
	}
	for _, o := range outputs {
		data, err := o.generate()
		if err != nil {
			log.Fatalf("Error generating %s: %v", o.name, err)
		}
		outputPath := filepath.Join(outputDir, o.name)
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			log.Fatalf("Error writing schema file: %v", err)
		}
		log.Printf("Wrote %s", outputPath)
	}
}
