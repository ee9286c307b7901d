package source

import (
	"context"
	"io"
	"os"
)

// FileSource reads a CSV export saved on disk.
type FileSource struct {
	path string
}

func NewFile(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fetchError(s.Name(), err)
	}
	return f, nil
}
