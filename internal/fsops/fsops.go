// Package fsops exposes thin interfaces over os and filepath helpers so the
// resolver and the build-context stager can be tested without touching the
// real filesystem.
package fsops

import (
	"io/fs"
	"os"
	"path/filepath"
)

//go:generate mockgen -destination=mocks/fsops.go -package=mocks . PathOps,OSOps,DirWalker

// PathOps abstracts common filepath operations to allow mocking in tests.
type PathOps interface {
	Abs(path string) (string, error)
	Rel(basepath, targpath string) (string, error)
	Join(elem ...string) string
	Clean(path string) string
}

// OSOps abstracts filesystem metadata queries and whole-file reads.
type OSOps interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
}

// DirWalker abstracts directory walking (e.g., filepath.WalkDir).
type DirWalker interface {
	WalkDir(root string, fn fs.WalkDirFunc) error
}

// Ops groups together the filesystem dependencies.
type Ops struct {
	Path   PathOps
	OS     OSOps
	Walker DirWalker
}

// DefaultOps returns an Ops configured with the standard library implementations.
func DefaultOps() Ops {
	return Ops{
		Path:   stdPathOps{},
		OS:     stdOSOps{},
		Walker: stdDirWalker{},
	}
}

// Valid reports whether every dependency is set.
func (o Ops) Valid() bool {
	return o.Path != nil && o.OS != nil && o.Walker != nil
}

type stdPathOps struct{}

func (stdPathOps) Abs(path string) (string, error) { return filepath.Abs(path) }
func (stdPathOps) Rel(basepath, targpath string) (string, error) {
	return filepath.Rel(basepath, targpath)
}
func (stdPathOps) Join(elem ...string) string { return filepath.Join(elem...) }
func (stdPathOps) Clean(path string) string   { return filepath.Clean(path) }

type stdOSOps struct{}

func (stdOSOps) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
func (stdOSOps) ReadFile(name string) ([]byte, error)  { return os.ReadFile(name) }

type stdDirWalker struct{}

func (stdDirWalker) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}
