// Command compile reads a source file, compiles it, and writes a gml0
// compiled-library file (spec.md §6 "CLI surface").
package main

import (
	"fmt"
	"os"

	"github.com/seilweiss/gm-lcp"
	"github.com/seilweiss/gm-lcp/internal/termcolor"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	bigEndian := false
	var rest []string
	for _, a := range args {
		if a == "-g" {
			bigEndian = true
			continue
		}
		rest = append(rest, a)
	}
	if len(rest) != 2 {
		fmt.Fprintln(os.Stderr, "usage: compile [-g] <src> <out>")
		return 1
	}
	srcPath, outPath := rest[0], rest[1]

	colored := termcolor.Supported(os.Stdout.Fd())

	src, err := os.ReadFile(srcPath)
	if err != nil {
		fmt.Println(termcolor.Wrap("COMPILE_ERROR", termcolor.Red, colored))
		fmt.Println(err.Error())
		return 1
	}

	lib, err := gm.ParseMiniSource(string(src))
	if err != nil {
		fmt.Println(termcolor.Wrap("COMPILE_ERROR", termcolor.Red, colored))
		fmt.Println(err.Error())
		return 1
	}

	endian := gm.LittleEndian
	if bigEndian {
		endian = gm.BigEndian
	}
	out := gm.EncodeLibrary(lib, endian)

	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		fmt.Println(termcolor.Wrap("COMPILE_ERROR", termcolor.Red, colored))
		fmt.Println(err.Error())
		return 1
	}

	fmt.Println(termcolor.Wrap("OK", termcolor.Green, colored))
	return 0
}
