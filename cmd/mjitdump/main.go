// Command mjitdump reads a textual IR dump, runs the optimization
// pipeline over it, and writes the optimized section back out in textual
// form, plus JSON form when -json-out is given -- a demonstration harness
// for ir.ParseText/ir.Optimize/ir.WriteText/ir.WriteJSON, not a production
// surface.
// Grounded in style on cmd/wazero/wazero.go's own bare-flag CLI.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mjit-project/mjit/ir"
)

func main() {
	os.Exit(doMain(os.Stdin, os.Stdout, os.Stderr))
}

func doMain(stdIn io.Reader, stdOut io.Writer, stdErr io.Writer) int {
	flag.CommandLine.SetOutput(stdErr)

	var (
		in       string
		textOut  string
		jsonOut  string
		maxIters int
	)
	flag.StringVar(&in, "in", "", "Path to a textual IR dump (- or empty reads stdin).")
	flag.StringVar(&textOut, "text-out", "", "Path to write the optimized textual dump (- writes stdout).")
	flag.StringVar(&jsonOut, "json-out", "", "Path to write the optimized JSON dump.")
	flag.IntVar(&maxIters, "max-iters", 8, "Maximum fixed-point iterations for the iterative passes.")
	flag.Parse()

	src, err := readInput(stdIn, in)
	if err != nil {
		fmt.Fprintln(stdErr, "mjitdump:", err)
		return 1
	}

	ctx := ir.NewContext()
	sec, err := ir.ParseText(ctx, src)
	if err != nil {
		fmt.Fprintln(stdErr, "mjitdump:", err)
		return 1
	}

	if ir.Verify(sec, stdErr) {
		return 1
	}

	ir.Optimize(sec, maxIters)

	if ir.Verify(sec, stdErr) {
		fmt.Fprintln(stdErr, "mjitdump: optimization pipeline produced an invalid section")
		return 1
	}

	if err := writeOutput(stdOut, textOut, ir.WriteText(sec, nil)); err != nil {
		fmt.Fprintln(stdErr, "mjitdump:", err)
		return 1
	}

	if jsonOut != "" {
		doc, err := ir.WriteJSON(sec, nil)
		if err != nil {
			fmt.Fprintln(stdErr, "mjitdump:", err)
			return 1
		}
		if err := os.WriteFile(jsonOut, doc, 0o644); err != nil {
			fmt.Fprintln(stdErr, "mjitdump:", err)
			return 1
		}
	}

	return 0
}

func readInput(stdIn io.Reader, path string) (string, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(stdIn)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

// writeOutput writes text to path, or to stdOut when path is empty or "-"
// (the default, since a demonstration harness should be pipeable without
// forcing a file argument).
func writeOutput(stdOut io.Writer, path, text string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(stdOut, text)
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
