package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const program = `
program: Greeter
types:
  - name: pair
    type: {record: [{name: first, type: string}, {name: second, type: string}]}
vars:
  - {name: names, type: pair}
body:
  - {assign: {ref: names, sel: [first]}, value: {str: "world"}, line: 2}
  - {writeln: [{str: "hello, "}, {ref: names, sel: [first]}], line: 3}
`

func TestCompileCommand(t *testing.T) {
	dir, err := ioutil.TempDir("", "pjc")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	src := filepath.Join(dir, "greeter.yaml")
	require.NoError(t, ioutil.WriteFile(src, []byte(program), 0644))
	out := filepath.Join(dir, "build")

	cmd := newPjcCmd()
	cmd.SetArgs([]string{"compile", "-o", out, "--range-check", src})
	require.NoError(t, cmd.Execute())

	text, err := ioutil.ReadFile(filepath.Join(out, "Greeter.j"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(text), ".class public Greeter\n"))
	assert.Contains(t, string(text), ".line 3\n")
	_, err = os.Stat(filepath.Join(out, "Greeter$pair.j"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, "RangeChecker.j"))
	assert.True(t, os.IsNotExist(err))
}

func TestCompileCommandWithoutLines(t *testing.T) {
	dir, err := ioutil.TempDir("", "pjc")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	src := filepath.Join(dir, "greeter.yaml")
	require.NoError(t, ioutil.WriteFile(src, []byte(program), 0644))

	cmd := newPjcCmd()
	cmd.SetArgs([]string{"compile", "--no-lines", "-o", dir, src})
	require.NoError(t, cmd.Execute())
	text, err := ioutil.ReadFile(filepath.Join(dir, "Greeter.j"))
	require.NoError(t, err)
	assert.NotContains(t, string(text), ".line")
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "unit", plural(1, "unit"))
	assert.Equal(t, "units", plural(3, "unit"))
}
