package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/atomsynth/atomsynth/unitdoc"
	"github.com/atomsynth/atomsynth/units"
	"github.com/atomsynth/atomsynth/version"
)

func main() {
	format := flag.String("f", "text", fmt.Sprintf("Output format, one of: %v.", strings.Join(unitdoc.Formats, ", ")))
	output := flag.String("o", "", "Write to the given file instead of standard output.")
	debug := flag.Bool("debug", false, "Include the debug units.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "atomsynth unit lister: prints the unit types, their controls and defaults.\nUsage: %s [flags]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	doc, err := unitdoc.Make(units.NewRegistry(*debug))
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not list units: %v\n", err)
		os.Exit(1)
	}
	out, err := doc.Render(*format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *output == "" {
		os.Stdout.Write(out)
		return
	}
	if err := os.WriteFile(*output, out, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "could not write file %v: %v\n", *output, err)
		os.Exit(1)
	}
}
