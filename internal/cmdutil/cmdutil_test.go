package cmdutil

import (
	"testing"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "boom", ErrorMessage(errors.New("boom")))

	var single *multierror.Error
	single = multierror.Append(single, errors.New("only"))
	assert.Equal(t, "only", ErrorMessage(single))

	var multi *multierror.Error
	multi = multierror.Append(multi, errors.New("first"), errors.New("second"))
	assert.Equal(t, "2 problems:\n  first\n  second", ErrorMessage(multi))

	nested := &multierror.Error{Errors: []error{errors.New("third"), multi}}
	assert.Equal(t, "3 problems:\n  third\n  first\n  second", ErrorMessage(nested))
}

func TestDetailedErrorIncludesStack(t *testing.T) {
	err := errors.Wrap(errors.New("disk full"), "writing Hello.j")
	msg := DetailedError(err)
	assert.Contains(t, msg, "writing Hello.j: disk full")
	assert.Contains(t, msg, "\n\ndisk full\n")
	assert.Contains(t, msg, "TestDetailedErrorIncludesStack")
}

func TestInitLogging(t *testing.T) {
	InitLogging(true, 4)
	assert.True(t, LogToStderr)
	InitLogging(false, 0)
	assert.False(t, LogToStderr)
}
