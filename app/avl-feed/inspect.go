package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/iqskr/AVLSystem/business/data/feed"
)

// inspectFeedFiles prints every .pb feed file at path in protocol buffer text format. path may be a single file or
// a directory searched recursively, files are printed in lexical order.
func inspectFeedFiles(w io.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return inspectFeedFile(w, path)
	}
	found := 0
	err = filepath.WalkDir(path, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".pb") {
			return nil
		}
		found++
		return inspectFeedFile(w, filePath)
	})
	if err != nil {
		return err
	}
	if found == 0 {
		_, err = fmt.Fprintf(w, "no .pb files found in %s\n", path)
	}
	return err
}

func inspectFeedFile(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	message, err := feed.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	_, err = fmt.Fprintf(w, "file: %s\nkind: %s\n%s\n", path, feed.KindOf(message), feed.FormatText(message))
	return err
}
