package display

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/rodaine/table"

	"github.com/dmagro/substrate-meta/internal/metadata"
)

// PalletsFormatter prints one row per pallet of a metadata document.
type PalletsFormatter struct {
	Source string
	Doc    *metadata.Document
}

// Format writes the pallet table and a summary line to w.
func (f *PalletsFormatter) Format(w io.Writer) error {
	fmt.Fprintf(w, "\n%s %s\n\n", Bold("Runtime metadata"), Dim(f.Source))

	headerFmt := color.New(color.FgCyan, color.Underline).SprintfFunc()
	tbl := table.New("Index", "Pallet", "Storage", "Calls", "Events", "Constants", "Errors")
	tbl.WithHeaderFormatter(headerFmt).WithWriter(w)

	var storageItems, constants int
	for _, p := range f.Doc.Pallets {
		storage := Dim("-")
		if p.Storage != nil {
			storage = strconv.Itoa(len(p.Storage.Items))
			storageItems += len(p.Storage.Items)
		}
		constants += len(p.Constants)

		tbl.AddRow(
			p.Index,
			p.Name,
			storage,
			presence(p.Calls),
			presence(p.Events),
			len(p.Constants),
			presence(p.Errors),
		)
	}
	tbl.Print()

	fmt.Fprintf(w, "\n%d pallets, %d types, %d storage items, %d constants, extrinsic v%s",
		len(f.Doc.Pallets), len(f.Doc.Lookup.Types), storageItems, constants, f.Doc.Extrinsic.Version)
	if n := len(f.Doc.Extrinsic.SignedExtensions); n > 0 {
		fmt.Fprintf(w, " with %d signed extensions", n)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)
	return nil
}

func presence(ref *metadata.TypeRef) string {
	if ref == nil {
		return Dim("-")
	}
	return Green("✓")
}
