package recognize

import (
	"image"
	"sort"
	"strings"
)

// GroupFragmentRows reassembles box-mode fragments into table rows. Fragments
// whose top edge falls within tolerancePx of the row anchor belong to the
// same row; within a row, fragments read left to right. The anchor is the
// first fragment of the row in top order, so slight baseline drift across a
// wide row does not split it.
func GroupFragmentRows(frags []Fragment, tolerancePx int) [][]Fragment {
	if len(frags) == 0 {
		return nil
	}

	sorted := make([]Fragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Box.Min.Y < sorted[j].Box.Min.Y
	})

	var rows [][]Fragment
	anchor := sorted[0].Box.Min.Y
	current := []Fragment{sorted[0]}
	for _, f := range sorted[1:] {
		if f.Box.Min.Y-anchor <= tolerancePx {
			current = append(current, f)
			continue
		}
		rows = append(rows, current)
		anchor = f.Box.Min.Y
		current = []Fragment{f}
	}
	rows = append(rows, current)

	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool {
			return row[i].Box.Min.X < row[j].Box.Min.X
		})
	}
	return rows
}

// RowText joins a row's fragments in reading order.
func RowText(row []Fragment) string {
	words := make([]string, len(row))
	for i, f := range row {
		words[i] = f.Text
	}
	return strings.Join(words, " ")
}

// RowBounds is the union of a row's fragment boxes, used to crop the row for
// a secondary recognition pass.
func RowBounds(row []Fragment) image.Rectangle {
	var box image.Rectangle
	for _, f := range row {
		box = box.Union(f.Box)
	}
	return box
}

// GroupRows is GroupFragmentRows flattened to row texts.
func GroupRows(frags []Fragment, tolerancePx int) []string {
	rows := GroupFragmentRows(frags, tolerancePx)
	texts := make([]string, len(rows))
	for i, row := range rows {
		texts[i] = RowText(row)
	}
	return texts
}
