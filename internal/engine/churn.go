package engine

import "github.com/sergi/go-diff/diffmatchpatch"

// lineChurn counts added and removed lines between two snapshots. Each
// rune stands for one line after the lines-to-runes mapping.
func lineChurn(before, after string) (added, removed int) {
	dmp := diffmatchpatch.New()

	src, dst, _ := dmp.DiffLinesToRunes(before, after)
	diffs := dmp.DiffMainRunes(src, dst, false)

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += len([]rune(d.Text))
		case diffmatchpatch.DiffDelete:
			removed += len([]rune(d.Text))
		case diffmatchpatch.DiffEqual:
		}
	}

	return added, removed
}
