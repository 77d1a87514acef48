//go:build mage

// Package main contains Mage build targets for citereview developer tooling.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir    = "bin"
	binName   = "citereview"
	cmdPkg    = "./cmd/citereview"
	corpusDir = "corpus"
)

// sampleConfig is written by Init when no citereview.yaml exists.
const sampleConfig = `corpus_dir: corpus
workers: 1
call_timeout: 5m
log:
  level: info
  format: console
acquisition:
  citation_limit: 1000
  download_delay: 1s
  rate_limit: 1
llm:
  provider: openai
  base_url: http://localhost:8000/v1
  model: Qwen/Qwen2.5-72B-Instruct
  temperature: 0
`

// Init creates the corpus and secrets directories and a starter config.
func Init() error {
	for _, dir := range []string{corpusDir, ".secrets"} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	if _, err := os.Stat("citereview.yaml"); os.IsNotExist(err) {
		if err := os.WriteFile("citereview.yaml", []byte(sampleConfig), 0o644); err != nil {
			return err
		}
		fmt.Println("   citereview.yaml")
	}
	return nil
}

// Build compiles the CLI binary into bin/. The sqlite driver needs cgo.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version, _ := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if version == "" {
		version = "dev"
	}
	env := map[string]string{"CGO_ENABLED": "1"}
	if err := sh.RunWithV(env, "go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", out, version)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Check runs Lint and Test.
func Check() {
	mg.SerialDeps(Lint, Test)
}

// Run builds the CLI and advances every seed in the corpus through all stages.
func Run() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "run")
}

// Status builds the CLI and prints corpus progress.
func Status() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "status")
}

// Stats prints Go production and test line counts.
func Stats() error {
	prod, test, err := countGoLines(".")
	if err != nil {
		return err
	}
	fmt.Printf("Lines of code (Go, production): %d\n", prod)
	fmt.Printf("Lines of code (Go, tests):      %d\n", test)
	return nil
}

// countGoLines counts non-blank lines in Go files, split by test and non-test.
func countGoLines(root string) (prod, test int, err error) {
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		n := 0
		for _, line := range bytes.Split(data, []byte("\n")) {
			if len(bytes.TrimSpace(line)) > 0 {
				n++
			}
		}
		if strings.HasSuffix(path, "_test.go") {
			test += n
		} else {
			prod += n
		}
		return nil
	})
	return prod, test, err
}
