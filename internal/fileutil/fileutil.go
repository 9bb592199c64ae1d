// Package fileutil holds the filesystem primitives the organizer mutates the
// library with: hashing, verified copies, and cross-device aware moves.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// HashFile returns the hex SHA256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CopyFileVerified streams src to dst with SHA256 + size integrity verification
// and returns the content hash. The source mode is preserved. dst is removed on
// mismatch.
func CopyFileVerified(src, dst string) (string, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return "", err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, srcHasher))
	if err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	if err := out.Sync(); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", err
	}

	if written != srcInfo.Size() {
		_ = os.Remove(dst)
		return "", fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}

	want := hex.EncodeToString(srcHasher.Sum(nil))
	got, err := HashFile(dst)
	if err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("hash copy: %w", err)
	}
	if got != want {
		_ = os.Remove(dst)
		return "", fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return want, nil
}

// ErrSourceRetained marks a cross-device move that left both copies: the
// destination holds verified content but neither src nor the copy could be
// removed. Callers should treat the result as a copy.
var ErrSourceRetained = errors.New("source retained after cross-device copy")

// MoveResult describes how MoveFile relocated a file.
type MoveResult struct {
	// Hash is set only when the move fell back to a copy.
	Hash        string
	CrossDevice bool
	// SourceRetained is set with ErrSourceRetained.
	SourceRetained bool
}

var (
	rename = os.Rename
	remove = os.Remove
)

// MoveFile renames src to dst. When the two live on different filesystems it
// falls back to a verified copy followed by removal of src. If src cannot be
// removed the copy is withdrawn so that dst is left as it was found.
func MoveFile(src, dst string) (MoveResult, error) {
	err := rename(src, dst)
	if err == nil {
		return MoveResult{}, nil
	}
	if !IsCrossDevice(err) {
		return MoveResult{}, err
	}
	hash, err := CopyFileVerified(src, dst)
	if err != nil {
		return MoveResult{CrossDevice: true}, fmt.Errorf("cross-device copy: %w", err)
	}
	if err := remove(src); err != nil {
		if rmErr := remove(dst); rmErr != nil {
			return MoveResult{Hash: hash, CrossDevice: true, SourceRetained: true},
				fmt.Errorf("%w: remove source: %v; remove copy: %v", ErrSourceRetained, err, rmErr)
		}
		return MoveResult{CrossDevice: true}, fmt.Errorf("remove source after copy: %w", err)
	}
	return MoveResult{Hash: hash, CrossDevice: true}, nil
}

// IsCrossDevice reports whether err is an EXDEV rename failure.
func IsCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}

// EnsureParent creates the parent directory of path.
func EnsureParent(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Exists reports whether path exists without following a final symlink.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
