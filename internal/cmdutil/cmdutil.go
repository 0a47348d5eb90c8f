// Package cmdutil contains helpers shared by the command-line tools: glog
// initialization and error reporting on exit.
package cmdutil

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// LogToStderr is set by InitLogging and selects detailed error output.
var LogToStderr = false

// InitLogging ensures the glog library has been initialized with the given settings.
func InitLogging(logToStderr bool, verbose int) {
	// glog reads its settings from the standard flag set, which must have been parsed.
	if !flag.Parsed() {
		_ = flag.CommandLine.Parse(nil)
	}
	if logToStderr {
		_ = flag.Set("logtostderr", "true")
	}
	if verbose > 0 {
		_ = flag.Set("v", strconv.Itoa(verbose))
	}
	LogToStderr = logToStderr
}

// RunFunc wraps an error-returning cobra run function, reporting errors and
// exiting with a non-zero status.
func RunFunc(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		if err := run(cmd, args); err != nil {
			var msg string
			if LogToStderr {
				msg = DetailedError(err)
			} else {
				msg = ErrorMessage(err)
				glog.V(3).Info(DetailedError(err))
			}
			ExitError(msg)
		}
	}
}

// ExitError prints msg and exits with status 1.
func ExitError(msg string, args ...interface{}) {
	glog.Flush()
	fmt.Fprintf(os.Stderr, "error: "+msg+"\n", args...)
	os.Exit(1)
}

// ErrorMessage formats err for the terminal. The errors collected in a
// multierror, such as all resolution errors of one tree file, are flattened
// into an indented list.
func ErrorMessage(err error) string {
	errs := flatten(err, nil)
	if len(errs) == 1 {
		return errs[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d problems:", len(errs))
	for _, e := range errs {
		fmt.Fprintf(&b, "\n  %v", e)
	}
	return b.String()
}

func flatten(err error, errs []error) []error {
	if m, ok := err.(*multierror.Error); ok {
		for _, e := range m.WrappedErrors() {
			errs = flatten(e, errs)
		}
		return errs
	}
	return append(errs, err)
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// DetailedError is ErrorMessage followed by the wrapping chain and stack
// traces of every error that recorded one.
func DetailedError(err error) string {
	var b strings.Builder
	b.WriteString(ErrorMessage(err))
	for _, e := range flatten(err, nil) {
		if _, ok := e.(stackTracer); ok {
			fmt.Fprintf(&b, "\n\n%+v", e)
		}
	}
	return b.String()
}
