// Package contract checks invariants of the code generator. A failed check is
// a programming defect, either in the generator or in the tree it was handed;
// it is logged and the goroutine panics with a Violation.
package contract

import (
	"fmt"

	"github.com/golang/glog"
)

const (
	failMsg    = "A failure has occurred"
	requireMsg = "A precondition has failed for %v"
	assertMsg  = "An assertion has failed"
)

// Violation is the panic value of a failed check.
type Violation string

func (v Violation) String() string { return string(v) }

func failfast(msg string) {
	glog.Error(msg)
	panic(Violation(msg))
}

// Failf unconditionally fails, formatting the given message.
func Failf(msg string, args ...interface{}) {
	failfast(fmt.Sprintf("%v: %v", failMsg, fmt.Sprintf(msg, args...)))
}

// Require checks a precondition pertaining to a function parameter.
func Require(cond bool, param string) {
	if !cond {
		failfast(fmt.Sprintf(requireMsg, param))
	}
}

// Requiref checks a precondition pertaining to a function parameter, with a formatted message.
func Requiref(cond bool, param string, msg string, args ...interface{}) {
	if !cond {
		failfast(fmt.Sprintf("%v: %v", fmt.Sprintf(requireMsg, param), fmt.Sprintf(msg, args...)))
	}
}

// Assertf checks an internal invariant.
func Assertf(cond bool, msg string, args ...interface{}) {
	if !cond {
		failfast(fmt.Sprintf("%v: %v", assertMsg, fmt.Sprintf(msg, args...)))
	}
}
