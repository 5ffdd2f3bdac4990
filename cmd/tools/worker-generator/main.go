// cmd/tools/worker-generator/main.go
package main

import (
	"flag"
	"fmt"
	"os"

	"finlife-navigator/pkg/registry"
)

func main() {
	activity := flag.String("activity", "", "Activity ID from the registry (e.g. allocate-portfolio)")
	outputDir := flag.String("output", "./internal/workers", "Root directory for generated workers")
	registryPath := flag.String("registry", "pkg/registry/activities.json", "Path to the activity registry JSON file")
	force := flag.Bool("force", false, "Overwrite existing files")
	flag.Parse()

	if *activity == "" {
		fmt.Println("Usage: worker-generator -activity <id> [-output <dir>] [-registry <path>] [-force]")
		os.Exit(1)
	}

	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Printf("Error loading registry from %s: %v\n", *registryPath, err)
		os.Exit(1)
	}

	var found *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].ID == *activity {
			found = &reg.Activities[i]
			break
		}
	}
	if found == nil {
		fmt.Printf("Activity '%s' not found in registry %s\n", *activity, *registryPath)
		os.Exit(1)
	}

	written, err := Generate(found, *outputDir, *force)
	for _, path := range written {
		fmt.Printf("✓ Generated %s\n", path)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if len(written) == 0 {
		fmt.Println("Nothing generated; all files exist (use -force to overwrite)")
		return
	}

	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Implement the Service for %s\n", found.TaskType)
	fmt.Printf("  2. Register the worker in cmd/worker-manager/main.go\n")
	fmt.Printf("  3. Add a workers.%s section to configs/config.yaml\n", found.TaskType)
}
