package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fern/internal/lexer"
	"fern/internal/parser"
	"fern/internal/source"
	"fern/internal/token"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] <file.fn>",
	Short: "Parse a Fern file and print its deparsed form",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().Bool("tokens", false, "dump the token stream instead of the parsed form")
}

func runParse(cmd *cobra.Command, args []string) error {
	fs := source.NewFileSet()
	id, err := fs.Load(args[0])
	if err != nil {
		return err
	}
	file := fs.Get(id)

	if dumpTokens, _ := cmd.Flags().GetBool("tokens"); dumpTokens {
		lx := lexer.New(file)
		for {
			tok := lx.Next()
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %q\n", tok.Kind, tok.Text)
			if tok.Kind == token.EOF {
				return nil
			}
		}
	}

	prog, parseErrs := parser.New(file).Parse()
	if len(parseErrs) > 0 {
		for _, pe := range parseErrs {
			fmt.Fprintln(os.Stderr, pe)
		}
		os.Exit(1)
	}
	for _, stmt := range prog.Stmts {
		fmt.Fprintln(cmd.OutOrStdout(), stmt.String())
	}
	return nil
}
