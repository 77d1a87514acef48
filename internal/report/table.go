// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders corpus status for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/pdiddy/citereview/pkg/types"
)

// maxTitleWidth truncates long seed titles in the status table.
const maxTitleWidth = 60

// Table renders rows as a pipe table padded by display width, so CJK titles
// line up. Short rows are padded with empty cells.
func Table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	all := append([][]string{header}, rows...)
	for _, row := range all {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	var sb strings.Builder
	writeRow := func(row []string) {
		sb.WriteString("|")
		for i, w := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			sb.WriteString(" ")
			sb.WriteString(runewidth.FillRight(cell, w))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	writeRow(header)
	sb.WriteString("|")
	for _, w := range widths {
		sb.WriteString(" " + strings.Repeat("-", w) + " |")
	}
	sb.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

// WriteStatus prints one line per WorkItem and a per-status tally.
func WriteStatus(w io.Writer, states []types.ItemState) error {
	header := []string{"title", "status", "documents", "unavailable", "accepted", "positive"}
	rows := make([][]string, 0, len(states))
	tally := map[types.Status]int{}
	for _, st := range states {
		tally[st.Status]++
		title := st.Title
		if title == "" {
			title = st.Slug
		}
		rows = append(rows, []string{
			runewidth.Truncate(title, maxTitleWidth, "..."),
			st.Status.String(),
			strconv.Itoa(st.Documents),
			strconv.Itoa(st.Unavailable),
			strconv.Itoa(st.Accepted),
			strconv.Itoa(st.Positive),
		})
	}
	if _, err := io.WriteString(w, Table(header, rows)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d items: %d new, %d acquired, %d classified, %d analyzed\n",
		len(states), tally[types.StatusNew], tally[types.StatusAcquired],
		tally[types.StatusClassified], tally[types.StatusAnalyzed])
	return err
}
