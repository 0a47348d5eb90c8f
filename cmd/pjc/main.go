// Command pjc translates annotated Pascal program trees into Jasmin
// assembly units for the JVM.
package main

import (
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/fzipp/pascal-jvm/internal/cmdutil"
)

func main() {
	err := newPjcCmd().Execute()
	glog.Flush()
	if err != nil {
		os.Exit(1)
	}
}

func newPjcCmd() *cobra.Command {
	var logToStderr bool
	var verbose int

	cmd := &cobra.Command{
		Use:   "pjc",
		Short: "pjc compiles Pascal programs to Jasmin assembly",
		Long: "pjc generates Jasmin assembly for the JVM from the annotated tree of a\n" +
			"Pascal program. Each program produces one unit for its main class and one\n" +
			"unit per record type; assemble them with jasmin to obtain class files.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmdutil.InitLogging(logToStderr, verbose)
		},
	}

	cmd.PersistentFlags().BoolVar(&logToStderr, "logtostderr", false,
		"Log to stderr instead of to files")
	cmd.PersistentFlags().IntVarP(&verbose, "verbose", "v", 0,
		"Enable verbose logging (e.g., v=3); anything >5 is very verbose")

	cmd.AddCommand(newCompileCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}
