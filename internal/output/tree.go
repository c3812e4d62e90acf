package output

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

// PrintTree renders the discovered directories (e.g. ["admin/",
// "admin/config/", "js/"]) as a tree.
func PrintTree(w io.Writer, dirs []string) error {
	list := leveledList(dirs)
	if len(list) == 0 {
		return nil
	}
	root := putils.TreeFromLeveledList(list)
	s, err := pterm.DefaultTree.WithRoot(root).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "\nDiscovered directories:\n%s", s)
	return err
}

// leveledList flattens dirs into depth-first order, emitting each
// intermediate directory once.
func leveledList(dirs []string) pterm.LeveledList {
	var split [][]string
	seen := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		d = strings.Trim(d, "/")
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		split = append(split, strings.Split(d, "/"))
	}
	slices.SortFunc(split, slices.Compare[[]string])

	var list pterm.LeveledList
	var prev []string
	for _, parts := range split {
		common := 0
		for common < len(prev) && common < len(parts) && prev[common] == parts[common] {
			common++
		}
		for i := common; i < len(parts); i++ {
			list = append(list, pterm.LeveledListItem{Level: i, Text: parts[i]})
		}
		prev = parts
	}
	return list
}
