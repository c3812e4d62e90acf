package runner

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/maxvaer/dirsweep/internal/config"
	"github.com/maxvaer/dirsweep/pkg/version"
)

const logo = `     _ _                                   
  __| (_)_ __ _____      _____  ___ _ __  
 / _' | | '__/ __\ \ /\ / / _ \/ _ \ '_ \ 
| (_| | | |  \__ \\ V  V /  __/  __/ |_) |
 \__,_|_|_|  |___/ \_/\_/ \___|\___| .__/ 
                                   |_|    `

func printBanner(w io.Writer, opts *config.Options, targets []string, perDir int) {
	accent := pterm.NewStyle(pterm.FgCyan)
	dim := pterm.NewStyle(pterm.FgGray)
	if opts.NoColor {
		accent, dim = pterm.NewStyle(), pterm.NewStyle()
	}
	fmt.Fprintf(w, "\n%s %s\n", accent.Sprint(logo), dim.Sprint("v"+version.Version))

	on := func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	}
	target := targets[0]
	if len(targets) > 1 {
		target = fmt.Sprintf("%s (+%d more)", targets[0], len(targets)-1)
	}
	rows := pterm.TableData{
		{"Target", target},
		{"Threads", strconv.Itoa(opts.Threads)},
		{"Wordlist", fmt.Sprintf("%d paths per directory", perDir)},
	}
	if len(opts.Extensions) > 0 {
		rows = append(rows, []string{"Extensions", strings.Join(opts.Extensions, ", ")})
	}
	if len(opts.Methods) > 0 {
		rows = append(rows, []string{"Methods", strings.Join(opts.Methods, ", ")})
	}
	recursive := on(opts.Recursive)
	if opts.Recursive {
		recursive = fmt.Sprintf("%s (%s, depth %d)", recursive, opts.RecursionMode, opts.MaxDepth)
	}
	rows = append(rows,
		[]string{"Recursion", recursive},
		[]string{"Calibration", on(opts.SmartFilter)},
	)
	if opts.MaxRate > 0 {
		rows = append(rows, []string{"Max rate", fmt.Sprintf("%.0f req/s", opts.MaxRate)})
	}
	if opts.Proxy != "" {
		rows = append(rows, []string{"Proxy", opts.Proxy})
	}

	table, err := pterm.DefaultTable.WithData(rows).Srender()
	if err != nil {
		return
	}
	fmt.Fprintf(w, "%s\n\n", table)
}
