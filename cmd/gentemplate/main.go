// Command gentemplate generates the Excel import template for sources.
// Usage: go run cmd/gentemplate/main.go [output.xlsx]
package main

import (
	"log"
	"os"

	"github.com/newsloom/source-manager/internal/importer"
)

func main() {
	output := "sources_template.xlsx"
	if len(os.Args) > 1 {
		output = os.Args[1]
	}

	f, err := os.Create(output)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	if err := importer.WriteTemplate(f); err != nil {
		log.Fatal(err)
	}

	log.Printf("Template written to %s", output)
}
