package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// FileID is a workspace file id. The listing sends it as a JSON number,
// but numeric strings are accepted too.
type FileID int64

// UnmarshalJSON accepts 7 and "7"
func (id *FileID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid file id %s: %w", data, err)
	}
	*id = FileID(n)
	return nil
}

// WorkspaceFile is one entry of the brief workspace file listing
type WorkspaceFile struct {
	ID        FileID     `json:"id"`
	Path      string     `json:"path"`
	FullURL   string     `json:"fullUrl"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// IsPDF reports whether the file path has a .pdf extension, ignoring case
func (f WorkspaceFile) IsPDF() bool {
	return strings.EqualFold(path.Ext(f.Path), ".pdf")
}

// Name returns the last path element
func (f WorkspaceFile) Name() string {
	return path.Base(f.Path)
}
