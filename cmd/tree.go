package cmd

import (
	"fmt"
	"io"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree [command]",
	Short: "Prints the command structure of findy-didcomm",
	Long: `Prints the command structure of findy-didcomm.

The whole structure is printed when no argument is given, otherwise the
structure under the given subcommand of the root.
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer err2.Handle(&err)

		start := rootCmd
		if len(args) == 1 {
			start, _ = try.To2(rootCmd.Find(args))
		}
		printTree(cmd.OutOrStdout(), start, "", 0, true)
		return nil
	},
}

var treeLevel int

func printTree(w io.Writer, cmd *cobra.Command, indent string, level int, last bool) {
	if treeLevel != 0 && level >= treeLevel {
		return
	}
	branch, next := "├── ", "│   "
	if last {
		branch, next = "└── ", "    "
	}
	fmt.Fprintln(w, indent+branch+cmd.Name())

	subs := visible(cmd.Commands())
	for i, sub := range subs {
		printTree(w, sub, indent+next, level+1, i == len(subs)-1)
	}
}

func visible(cmds []*cobra.Command) []*cobra.Command {
	v := make([]*cobra.Command, 0, len(cmds))
	for _, c := range cmds {
		if !c.Hidden {
			v = append(v, c)
		}
	}
	return v
}

func init() {
	treeCmd.Flags().IntVarP(&treeLevel, "level", "L", 0, "depth of the tree, zero prints all")
	rootCmd.AddCommand(treeCmd)
}
