package checkpoint

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
)

const filePerm = 0644

// Write serializes set to w and returns the SHA-256 digest of the record
// count and records. The digest is not written to w.
func Write(w io.Writer, set *Set) (common.Hash, error) {
	if set == nil || set.Len() == 0 {
		return common.Hash{}, ErrEmptySet
	}
	if err := set.checkTimes(); err != nil {
		return common.Hash{}, err
	}

	bw := bufio.NewWriter(w)
	digest := sha256.New()
	body := io.MultiWriter(bw, digest)

	var word [4]byte
	if _, err := bw.WriteString(Magic); err != nil {
		return common.Hash{}, &IOError{Op: "write", Err: err}
	}
	// signature count, filled in by AttachSignatures
	if _, err := bw.Write(word[:]); err != nil {
		return common.Hash{}, &IOError{Op: "write", Err: err}
	}

	binary.BigEndian.PutUint32(word[:], uint32(set.Len()))
	if _, err := body.Write(word[:]); err != nil {
		return common.Hash{}, &IOError{Op: "write", Err: err}
	}
	record := make([]byte, RecordSize)
	for _, h := range set.headers {
		encodeRecord(record, h)
		if _, err := body.Write(record); err != nil {
			return common.Hash{}, &IOError{Op: "write", Err: err}
		}
	}

	if err := bw.Flush(); err != nil {
		return common.Hash{}, &IOError{Op: "write", Err: err}
	}
	return common.BytesToHash(digest.Sum(nil)), nil
}

// WriteFile writes set to a temporary file next to path and renames it over
// path. On any failure path is left untouched.
func WriteFile(path string, set *Set) (common.Hash, error) {
	if set == nil || set.Len() == 0 {
		return common.Hash{}, ErrEmptySet
	}
	if err := set.checkTimes(); err != nil {
		return common.Hash{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return common.Hash{}, &IOError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	digest, err := Write(tmp, set)
	if err != nil {
		return common.Hash{}, err
	}
	if err := tmp.Sync(); err != nil {
		return common.Hash{}, &IOError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return common.Hash{}, &IOError{Op: "chmod", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return common.Hash{}, &IOError{Op: "close", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return common.Hash{}, &IOError{Op: "rename", Path: path, Err: err}
	}
	renamed = true
	return digest, nil
}
