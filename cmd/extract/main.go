// Command extract reads a gml0 compiled-library file and writes its
// embedded source text back out (spec.md §6 "CLI surface").
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
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: extract <lib> <out>")
		return 1
	}
	libPath, outPath := args[0], args[1]
	colored := termcolor.Supported(os.Stdout.Fd())

	data, err := os.ReadFile(libPath)
	if err != nil {
		fmt.Println(termcolor.Wrap("LIB_LOAD_ERROR", termcolor.Red, colored))
		fmt.Println(err.Error())
		return 1
	}

	lib, _, err := gm.DecodeLibrary(data)
	if err != nil {
		fmt.Println(termcolor.Wrap("LIB_LOAD_ERROR", termcolor.Red, colored))
		fmt.Println(err.Error())
		return 1
	}
	if !lib.Debug {
		fmt.Println(termcolor.Wrap("LIB_LOAD_ERROR", termcolor.Red, colored))
		fmt.Println("library was not compiled with debug info; no source embedded")
		return 1
	}

	if err := os.WriteFile(outPath, []byte(lib.Source), 0o644); err != nil {
		fmt.Println(termcolor.Wrap("LIB_LOAD_ERROR", termcolor.Red, colored))
		fmt.Println(err.Error())
		return 1
	}

	fmt.Println(termcolor.Wrap("OK", termcolor.Green, colored))
	return 0
}
