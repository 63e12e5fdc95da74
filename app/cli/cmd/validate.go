package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"regatta/pkg/api"
	"regatta/pkg/matrix"

	"github.com/spf13/cobra"
)

// NewValidateCommand returns a new instance of a regatta command
func NewValidateCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "validate",
		Short: "validate a pipeline description and print its execution plan",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(validate(args[0]))
		},
	}
	return command
}

func validate(path string) int {
	spec, err := api.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitSpecError
	}
	if err := spec.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitSpecError
	}
	instances, err := matrix.ExpandPipeline(spec)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitSpecError
	}

	fmt.Printf("Pipeline %s is valid: %d jobs, %d instances\n\n", spec.Name, len(spec.Jobs), len(instances))
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTANCE\tSTEPS\tNEEDS")
	for _, inst := range instances {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", inst.ID(), len(inst.Spec.Steps), strings.Join(inst.Spec.Needs, ","))
	}
	tw.Flush()
	return exitSuccess
}
