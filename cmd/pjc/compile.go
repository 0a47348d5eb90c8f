package main

import (
	"fmt"
	"os"

	humanize "github.com/dustin/go-humanize"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fzipp/pascal-jvm/files"
	"github.com/fzipp/pascal-jvm/internal/cmdutil"
	"github.com/fzipp/pascal-jvm/pjg"
	"github.com/fzipp/pascal-jvm/pjl"
)

func newCompileCmd() *cobra.Command {
	var outDir string
	var rangeCheck bool
	var noLines bool
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "compile treefile...",
		Short: "Generate Jasmin units for one or more programs",
		Long: "Compile reads the annotated tree of each program (.yaml) and writes a\n" +
			"Jasmin unit (.j) for the program class, for every record type it uses,\n" +
			"and for the range checker when range checks were generated.\n" +
			"\n" +
			"Examples:\n" +
			"    pjc compile Hello.yaml\n" +
			"    pjc compile --range-check -o build A.yaml B.yaml\n" +
			"    pjc compile --stdout Hello.yaml",
		Args: cobra.MinimumNArgs(1),
		Run: cmdutil.RunFunc(func(cmd *cobra.Command, args []string) error {
			opts := pjg.Options{RangeCheck: rangeCheck, Lines: !noLines}
			glog.V(3).Infof("compiling %d programs with %v", len(args), opts)
			if !toStdout {
				if err := os.MkdirAll(outDir, 0755); err != nil {
					return errors.Wrapf(err, "creating output directory %s", outDir)
				}
			}
			for _, arg := range args {
				if err := compileFile(arg, outDir, toStdout, opts); err != nil {
					return err
				}
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".",
		"Directory to write the generated units to")
	cmd.Flags().BoolVar(&rangeCheck, "range-check", false,
		"Check assignments to subrange variables at run time")
	cmd.Flags().BoolVar(&noLines, "no-lines", false,
		"Omit .line directives")
	cmd.Flags().BoolVar(&toStdout, "stdout", false,
		"Print the generated units instead of writing files")

	return cmd
}

func compileFile(name, outDir string, toStdout bool, opts pjg.Options) error {
	prog, err := pjl.LoadFile(name)
	if err != nil {
		return err
	}

	if toStdout {
		mem := files.NewMemory()
		if _, err := pjg.Compile(prog, mem, opts); err != nil {
			return errors.Wrapf(err, "compiling %s", name)
		}
		_, err := mem.WriteTo(os.Stdout)
		return err
	}

	dir := files.NewDir(outDir)
	units, err := pjg.Compile(prog, dir, opts)
	if err != nil {
		return errors.Wrapf(err, "compiling %s", name)
	}
	var total int64
	for _, unit := range units {
		size := dir.Size(unit)
		total += size
		glog.V(1).Infof("wrote %s (%s)", dir.FileName(unit), humanize.Bytes(uint64(size)))
	}
	fmt.Printf("%s: %d %s, %s\n", name, len(units), plural(len(units), "unit"), humanize.Bytes(uint64(total)))
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
