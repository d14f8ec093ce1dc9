package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viniciusmctf/prksweep/internal/render"
	"github.com/viniciusmctf/prksweep/internal/utils"
)

var templatesCmd = &cobra.Command{
	Use:     "templates [name|file]",
	Aliases: []string{"tmpl"},
	Short:   "List built-in templates or show one",
	Long: `Without arguments, list the built-in script templates and the slots each
one uses. With a name or a file path, print the template text. A file is
checked for the required slots (NodeCount, JobName, OutputName).`,
	Example: `  prksweep templates
  prksweep templates chapel
  prksweep templates ./my_template.sh`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: templateCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			tmpl, err := render.Resolve(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(out, tmpl.Text())
			return nil
		}

		fmt.Fprintln(out, utils.StyleTitle("Built-in templates:"))
		for _, name := range render.BuiltinNames() {
			tmpl, err := render.Builtin(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  %-8s %s\n", utils.StyleName(name), strings.Join(tmpl.Slots(), ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}
