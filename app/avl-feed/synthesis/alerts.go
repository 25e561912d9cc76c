package synthesis

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/iqskr/AVLSystem/business/data/feed"
)

// FileAlertSource reads service alerts from a yaml or json file each cycle so alerts can be edited while running.
// A missing file means there are no alerts.
type FileAlertSource struct {
	path string
}

// NewFileAlertSource creates FileAlertSource reading path
func NewFileAlertSource(path string) *FileAlertSource {
	return &FileAlertSource{path: path}
}

// FetchAlerts returns the alerts currently in the file
func (s *FileAlertSource) FetchAlerts(_ context.Context) ([]feed.AlertInput, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read alerts file %s: %w", s.path, err)
	}
	return feed.ParseAlertInputs(data)
}
