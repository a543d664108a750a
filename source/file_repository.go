package source

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

// FileRepository reads the configuration document from a YAML or JSON file.
type FileRepository struct {
	document
	Name string // Name of the configuration source
	Path string // File path of the configuration document
}

// GetName returns the name of the configuration source.
func (f *FileRepository) GetName() string {
	if f.Name == "" {
		return "file"
	}
	return f.Name
}

// Refresh reads the file and swaps in its content.
func (f *FileRepository) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		logrus.WithField("path", f.Path).Debug("error reading file")
		return err
	}
	if err := f.swap(data); err != nil {
		logrus.WithField("path", f.Path).Debug("error unmarshalling file")
		return err
	}
	return nil
}
