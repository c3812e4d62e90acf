package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/maxvaer/dirsweep/internal/config"
	"github.com/maxvaer/dirsweep/internal/runner"
	"github.com/maxvaer/dirsweep/pkg/version"
)

var opts = config.Default()

var rootCmd = &cobra.Command{
	Use:     "dirsweep -u <url> [flags]",
	Short:   "Recursive web path scanner with wildcard calibration",
	Version: version.Version,
	Long: `dirsweep discovers hidden paths on web servers. It compiles a wordlist
into request paths, probes them concurrently, filters wildcard and soft-404
responses through per-directory calibration and recurses into discovered
directories.`,
	Example: `  dirsweep -u https://example.com
  dirsweep -u https://example.com -e php,html -t 50
  dirsweep -u https://example.com -w custom.txt --smart-filter=false
  dirsweep -u https://example.com -x 403,500 -o results.json --format json
  dirsweep -u https://example.com --recursive -R 2 --recursion-mode auto
  dirsweep -r burp.req -e php,html
  dirsweep -l urls.txt --target-concurrency 4
  dirsweep --cidr 192.168.1.0/24 --ports 80,443,8080
  dirsweep -u https://example.com --max-rate 20 --retries 2 --max-errors 25
  dirsweep -c scan.yaml -u https://example.com
  dirsweep -u https://example.com --resume-file scan.state
  dirsweep -u https://example.com --on-result "notify-send {url}"`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := applyHeaderFlags(cmd.Flags()); err != nil {
			return err
		}
		if opts.RequestFile != "" {
			if err := applyRequestFile(cmd.Flags(), &opts); err != nil {
				return err
			}
			if !opts.Quiet {
				fmt.Fprintf(os.Stderr, "[+] Loaded request from %s -> %s\n", opts.RequestFile, opts.URL)
			}
		}
		if opts.Auth != "" && opts.AuthType == "" {
			opts.AuthType = "basic"
		}
		for i, m := range opts.Methods {
			opts.Methods[i] = strings.ToUpper(m)
		}
		if opts.NoColor {
			pterm.DisableColor()
		}
		if err := opts.Validate(); err != nil {
			if opts.URL == "" && opts.URLsFile == "" && opts.CIDRTargets == "" {
				_ = cmd.Help()
				fmt.Fprintln(os.Stderr)
			}
			return err
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return runner.Run(ctx, &opts)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute loads the optional config file, registers the flags with the
// resulting defaults and runs the root command. Precedence is built-in
// defaults, then the config file, then flags.
func Execute() {
	if path := config.ConfigPath(os.Args[1:]); path != "" {
		if err := config.LoadFile(path, &opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	registerFlags(rootCmd.Flags(), &opts)
	rootCmd.SetHelpFunc(printHelp)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
