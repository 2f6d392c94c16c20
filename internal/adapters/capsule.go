package adapters

import (
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"compkit/internal/ports"
	"compkit/internal/types"
)

// TempCapsule is a disposable temp-dir sandbox components are
// materialized into for isolated builds and test runs.
type TempCapsule struct {
	path string
}

type TempCapsuleFactory struct{}

func NewTempCapsuleFactory() TempCapsuleFactory {
	return TempCapsuleFactory{}
}

func (TempCapsuleFactory) Create(prefix string) (ports.Capsule, error) {
	path, err := os.MkdirTemp("", prefix+"-")
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create capsule directory").
			WithCause(err)
	}
	return &TempCapsule{path: path}, nil
}

func (c *TempCapsule) Path() string {
	return c.path
}

func (c *TempCapsule) WriteFiles(rootDir string, files []types.SourceFile) error {
	for _, f := range files {
		if err := c.writeOne(rootDir, f.RelativePath, f.Contents); err != nil {
			return err
		}
	}
	return nil
}

func (c *TempCapsule) WriteDists(rootDir string, dists []types.Dist) error {
	for _, d := range dists {
		if err := c.writeOne(rootDir, d.RelativePath, d.Contents); err != nil {
			return err
		}
	}
	return nil
}

func (c *TempCapsule) writeOne(rootDir string, relativePath string, contents []byte) error {
	path := filepath.Join(c.path, rootDir, filepath.FromSlash(relativePath))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create capsule subdirectory").
			WithCause(err)
	}
	if err := os.WriteFile(path, contents, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write " + relativePath + " into capsule").
			WithCause(err)
	}
	return nil
}

func (c *TempCapsule) Destroy() error {
	if err := os.RemoveAll(c.path); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to destroy capsule").
			WithCause(err)
	}
	return nil
}
