package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	return SafeWriteFunc(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// SafeWriteFunc streams write into a uniquely named temp file next to path and
// renames it into place once write and Close both succeed. The temp file is
// removed on any failure, so path is either fully replaced or left untouched.
func SafeWriteFunc(path string, write func(w io.Writer) error) (err error) {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()
	if werr := write(f); werr != nil {
		_ = f.Close()
		return fmt.Errorf("write temp file: %w", werr)
	}
	if cerr := f.Close(); cerr != nil {
		return fmt.Errorf("close temp file: %w", cerr)
	}
	if rerr := os.Rename(tmp, path); rerr != nil {
		return fmt.Errorf("atomic rename: %w", rerr)
	}
	return nil
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}
