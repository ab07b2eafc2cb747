package config_test

import (
	"fmt"

	"github.com/ajitpratap0/mrmr/pkg/config"
)

// ExampleNewDefault demonstrates the defaults of a run.
func ExampleNewDefault() {
	cfg := config.NewDefault()

	fmt.Printf("Delimiter: %q\n", cfg.Input.Delimiter)
	fmt.Printf("Compression: %s\n", cfg.Output.Compression)
	fmt.Printf("Alignment: %d\n", cfg.Encoding.Alignment())

	// Output:
	// Delimiter: ","
	// Compression: none
	// Alignment: 0
}

// ExampleConfig_Validate shows how to validate a configuration before a run.
func ExampleConfig_Validate() {
	cfg := config.NewDefault()
	fmt.Println(cfg.Validate())

	cfg.Input.Path = "data.csv"
	cfg.Output.Path = "data.mrmr"
	cfg.Encoding.GPU = true
	fmt.Println(cfg.Validate())
	fmt.Println(cfg.Encoding.Alignment())

	// Output:
	// usage: input path is required
	// <nil>
	// 16
}
