package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/koustreak/blindsight/internal/result"
)

// printSummary writes a human-readable digest of doc.
func printSummary(w io.Writer, doc *result.Document) {
	bold := color.New(color.Bold)
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	warn := color.New(color.FgYellow)

	fmt.Fprintln(w)
	bold.Fprintf(w, "Scan %s ", doc.ID)
	if doc.State == result.StateDone {
		ok.Fprintln(w, doc.State)
	} else {
		bad.Fprintln(w, doc.State)
	}
	if doc.Error != "" {
		bad.Fprintf(w, "  error: %s\n", doc.Error)
	}
	if doc.DatabaseType != "" {
		fmt.Fprintf(w, "  dialect: %s\n", doc.DatabaseType)
	}
	fmt.Fprintf(w, "  probes: %d (transport failures: %d)\n", doc.Probes, doc.TransportFailures)

	for _, t := range doc.Tables {
		cols, enumerated := doc.Columns[t]
		if !enumerated {
			fmt.Fprintf(w, "\n  %s (not enumerated)\n", t)
			continue
		}
		bold.Fprintf(w, "\n  %s", t)
		fmt.Fprintf(w, " (%s)\n", strings.Join(cols, ", "))
		rows := doc.Data[t]
		if total, ok := doc.RowCounts[t]; ok && total > len(rows) {
			fmt.Fprintf(w, "    %d of %d rows\n", len(rows), total)
		}
		for _, r := range rows {
			cells := make([]string, len(cols))
			for i, c := range cols {
				cells[i] = r[c]
			}
			fmt.Fprintf(w, "    %s\n", strings.Join(cells, " | "))
		}
	}

	if len(doc.Warnings) > 0 {
		fmt.Fprintln(w)
		for _, wn := range doc.Warnings {
			warn.Fprintf(w, "  warning [%s] %s\n", wn.Kind, wn.Message)
		}
	}
}
