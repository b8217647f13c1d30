package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
)

// SourceFile is the handle to the original file a document was extracted from.
type SourceFile struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	Ext         string `json:"ext"`
	Size        int64  `json:"size"`
	ContentHash []byte `json:"-"`
}

// HashHex returns the hex encoded sha256 of the file content.
func (f SourceFile) HashHex() string {
	return hex.EncodeToString(f.ContentHash)
}

// NewSourceFile stats and hashes the file at path.
func NewSourceFile(path string) (SourceFile, error) {
	fh, err := os.Open(path)
	if err != nil {
		return SourceFile{}, fmt.Errorf("open source file: %w", err)
	}
	defer func() { _ = fh.Close() }()

	info, err := fh.Stat()
	if err != nil {
		return SourceFile{}, fmt.Errorf("stat source file: %w", err)
	}
	if info.IsDir() {
		return SourceFile{}, fmt.Errorf("source %q is a directory", path)
	}

	h := sha256.New()
	if _, err := io.Copy(h, fh); err != nil {
		return SourceFile{}, fmt.Errorf("hash source file: %w", err)
	}

	return SourceFile{
		Path:        path,
		Name:        filepath.Base(path),
		Ext:         constants.NormalizeExt(filepath.Ext(path)),
		Size:        info.Size(),
		ContentHash: h.Sum(nil),
	}, nil
}
