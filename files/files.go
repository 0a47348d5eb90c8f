// Package files provides the destinations of compiled units: a directory
// receiving one Jasmin source file per unit, or an in-memory set of units.
package files

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/glog"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Suffix is the file name extension of Jasmin assembly files.
const Suffix = ".j"

// Output creates the writers of compiled units.
type Output interface {
	Create(unit string) (io.WriteCloser, error)
}

// Dir writes each unit to <Path>/<unit>.j.
type Dir struct {
	Path string

	mu    sync.Mutex
	sizes map[string]int64
}

func NewDir(path string) *Dir {
	return &Dir{Path: path, sizes: make(map[string]int64)}
}

func (d *Dir) Create(unit string) (io.WriteCloser, error) {
	name := d.FileName(unit)
	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s", name)
	}
	return &countingFile{f: f, unit: unit, dir: d}, nil
}

// FileName returns the path of the file holding unit.
func (d *Dir) FileName(unit string) string {
	return filepath.Join(d.Path, unit+Suffix)
}

// Size returns the number of bytes written for unit.
func (d *Dir) Size(unit string) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sizes[unit]
}

type countingFile struct {
	f    *os.File
	unit string
	dir  *Dir
	n    int64
}

func (cf *countingFile) Write(p []byte) (int, error) {
	n, err := cf.f.Write(p)
	cf.n += int64(n)
	return n, err
}

func (cf *countingFile) Close() error {
	var result error
	if err := cf.f.Sync(); err != nil {
		result = multierror.Append(result, errors.Wrapf(err, "syncing %s", cf.f.Name()))
	}
	if err := cf.f.Close(); err != nil {
		result = multierror.Append(result, errors.Wrapf(err, "closing %s", cf.f.Name()))
	}
	cf.dir.mu.Lock()
	cf.dir.sizes[cf.unit] = cf.n
	cf.dir.mu.Unlock()
	glog.V(5).Infof("wrote %s (%d bytes)", cf.f.Name(), cf.n)
	return result
}

// Memory keeps the text of every unit in memory.
type Memory struct {
	mu    sync.Mutex
	units map[string]*bytes.Buffer
	order []string
}

func NewMemory() *Memory {
	return &Memory{units: make(map[string]*bytes.Buffer)}
}

func (m *Memory) Create(unit string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.units[unit]; dup {
		return nil, errors.Errorf("unit %s created twice", unit)
	}
	buf := new(bytes.Buffer)
	m.units[unit] = buf
	m.order = append(m.order, unit)
	return nopCloser{buf}, nil
}

// Text returns the text written for unit.
func (m *Memory) Text(unit string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.units[unit]
	if !ok {
		return "", false
	}
	return buf.String(), true
}

// Units returns the names of all units in the order they were created.
func (m *Memory) Units() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// WriteTo copies all units to w in creation order, each preceded by a
// header line.
func (m *Memory) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, name := range m.Units() {
		text, _ := m.Text(name)
		n, err := io.WriteString(w, "; ---- "+name+Suffix+" ----\n"+text)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
