// Command kvmd-keymap-gen reads the key table CSV and emits the Go source
// consumed by internal/keymap at build time.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type entry struct {
	WebName    string
	EvdevCode  int
	USBUsage   int
	IsModifier bool
}

func main() {
	in := flag.String("in", "keymap.csv", "input CSV path")
	out := flag.String("out", "table_generated.go", "output Go file path")
	pkg := flag.String("package", "keymap", "output package name")
	flag.Parse()

	if err := run(*in, *out, *pkg); err != nil {
		fmt.Fprintln(os.Stderr, "kvmd-keymap-gen:", err)
		os.Exit(1)
	}
}

func run(inPath, outPath, pkg string) error {
	f, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", inPath, err)
	}
	defer f.Close()

	entries, err := parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", inPath, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// Code generated by kvmd-keymap-gen from %s. DO NOT EDIT.\n\n", inPath)
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	fmt.Fprintf(&b, "var generatedTable = []Entry{\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "\t{WebName: %q, EvdevCode: %d, USBUsage: 0x%02X, IsModifier: %t},\n",
			e.WebName, e.EvdevCode, e.USBUsage, e.IsModifier)
	}
	fmt.Fprintf(&b, "}\n")

	return os.WriteFile(outPath, []byte(b.String()), 0o644)
}

func parse(f *os.File) ([]entry, error) {
	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	var entries []entry
	for _, row := range records[1:] {
		if len(row) != 4 {
			return nil, fmt.Errorf("bad row %v", row)
		}
		evdev, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("evdev code %q: %w", row[1], err)
		}
		usage, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(row[2], "0x")), 16, 32)
		if err != nil {
			return nil, fmt.Errorf("usb usage %q: %w", row[2], err)
		}
		isMod := strings.TrimSpace(row[3]) == "1"
		entries = append(entries, entry{
			WebName:    strings.TrimSpace(row[0]),
			EvdevCode:  evdev,
			USBUsage:   int(usage),
			IsModifier: isMod,
		})
	}
	return entries, nil
}
