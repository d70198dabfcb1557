// Package main provides the Lumo CLI.
package main

import (
	"fmt"
	"os"

	"github.com/lumo-ml/lumo/backend/cpu"
	"github.com/lumo-ml/lumo/backend/webgpu"
)

const version = "v0.1.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("Lumo %s\n", version)
			return
		case "backends":
			printBackends()
			return
		}
	}

	fmt.Println("Lumo - training organization for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version     Show version")
	fmt.Println("  backends    List available compute backends")
}

func printBackends() {
	fmt.Printf("cpu: %s\n", cpu.New().Name())
	if webgpu.IsAvailable() {
		backend, err := webgpu.New()
		if err != nil {
			fmt.Printf("webgpu: unavailable (%v)\n", err)
			return
		}
		fmt.Printf("webgpu: %s\n", backend.Name())
		backend.Release()
		return
	}
	fmt.Println("webgpu: unavailable")
}
