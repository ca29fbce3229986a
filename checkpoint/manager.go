package checkpoint

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"checkpoint-builder/models"

	"github.com/ethereum/go-ethereum/common"
)

// maxPrealloc bounds the slice allocated from an untrusted record count.
const maxPrealloc = 1 << 16

// Manager is a loaded, read-only checkpoint set.
type Manager struct {
	headers    []models.Header
	signatures [][]byte
	digest     common.Hash
}

// KnownCheckpoint pins the checkpoint a lookup at BeforeTime must return.
type KnownCheckpoint struct {
	BeforeTime int64
	Height     uint32
	Hash       common.Hash
}

// LoadFile opens path and parses it with Load
func LoadFile(path string) (*Manager, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	return Load(f)
}

// Load parses a checkpoints file. Any structural violation is reported as a
// *MalformedFileError; records are never dropped or reordered.
func Load(r io.Reader) (*Manager, error) {
	br := bufio.NewReader(r)
	var offset int64

	readFull := func(buf []byte, reason string) error {
		n, err := io.ReadFull(br, buf)
		offset += int64(n)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return &MalformedFileError{Reason: reason, Offset: offset}
		}
		if err != nil {
			return &IOError{Op: "read", Err: err}
		}
		return nil
	}

	magic := make([]byte, len(Magic))
	if err := readFull(magic, ReasonBadMagic); err != nil {
		return nil, err
	}
	if string(magic) != Magic {
		return nil, &MalformedFileError{Reason: ReasonBadMagic, Offset: 0, Detail: fmt.Sprintf("%q", magic)}
	}

	var word [4]byte
	if err := readFull(word[:], ReasonSignatureCount); err != nil {
		return nil, err
	}
	sigCount := binary.BigEndian.Uint32(word[:])
	if sigCount > MaxSignatures {
		return nil, &MalformedFileError{Reason: ReasonSignatureCount, Offset: offset - 4,
			Detail: fmt.Sprintf("%d signatures", sigCount)}
	}
	m := &Manager{}
	for i := uint32(0); i < sigCount; i++ {
		sig := make([]byte, SignatureSize)
		if err := readFull(sig, ReasonTruncatedSignature); err != nil {
			return nil, err
		}
		m.signatures = append(m.signatures, sig)
	}

	digest := sha256.New()
	if err := readFull(word[:], ReasonTruncatedCount); err != nil {
		return nil, err
	}
	digest.Write(word[:])
	count := binary.BigEndian.Uint32(word[:])
	if count == 0 {
		return nil, &MalformedFileError{Reason: ReasonCountMismatch, Offset: offset - 4,
			Detail: "file holds no records"}
	}

	m.headers = make([]models.Header, 0, min(count, maxPrealloc))
	record := make([]byte, RecordSize)
	for i := uint32(0); i < count; i++ {
		if err := readFull(record, ReasonTruncatedRecord); err != nil {
			var mf *MalformedFileError
			if errors.As(err, &mf) {
				mf.Detail = fmt.Sprintf("record %d of %d", i, count)
			}
			return nil, err
		}
		digest.Write(record)
		h := decodeRecord(record)
		if i > 0 {
			prev := m.headers[i-1]
			if h.Height <= prev.Height {
				return nil, &MalformedFileError{Reason: ReasonNonMonotonic, Offset: offset - RecordSize,
					Detail: fmt.Sprintf("height %d after %d", h.Height, prev.Height)}
			}
			// CheckpointBefore binary-searches on time
			if h.Time < prev.Time {
				return nil, &MalformedFileError{Reason: ReasonTimeRegression, Offset: offset - RecordSize,
					Detail: fmt.Sprintf("height %d at %d after height %d at %d", h.Height, h.Time, prev.Height, prev.Time)}
			}
		}
		m.headers = append(m.headers, h)
	}

	if _, err := br.ReadByte(); err == nil {
		return nil, &MalformedFileError{Reason: ReasonCountMismatch, Offset: offset,
			Detail: fmt.Sprintf("trailing data after %d records", count)}
	} else if err != io.EOF {
		return nil, &IOError{Op: "read", Err: err}
	}

	m.digest = common.BytesToHash(digest.Sum(nil))
	return m, nil
}

// NumCheckpoints returns the number of loaded checkpoints
func (m *Manager) NumCheckpoints() int {
	return len(m.headers)
}

// Digest returns the SHA-256 of the record count and records
func (m *Manager) Digest() common.Hash {
	return m.digest
}

// SignatureCount returns how many signature blobs the file carried
func (m *Manager) SignatureCount() int {
	return len(m.signatures)
}

// Signatures returns copies of the opaque signature blobs
func (m *Manager) Signatures() [][]byte {
	out := make([][]byte, len(m.signatures))
	for i, sig := range m.signatures {
		out[i] = append([]byte(nil), sig...)
	}
	return out
}

// Headers returns the checkpoints in ascending height order
func (m *Manager) Headers() []models.Header {
	out := make([]models.Header, len(m.headers))
	copy(out, m.headers)
	return out
}

// Get returns the checkpoint at height
func (m *Manager) Get(height uint32) (models.Header, bool) {
	i := sort.Search(len(m.headers), func(i int) bool {
		return m.headers[i].Height >= height
	})
	if i < len(m.headers) && m.headers[i].Height == height {
		return m.headers[i], true
	}
	return models.Header{}, false
}

// CheckpointBefore returns the highest checkpoint whose timestamp is at or
// before t. Callers fall back to genesis on ErrNoCheckpointBefore.
func (m *Manager) CheckpointBefore(t int64) (models.Header, error) {
	i := sort.Search(len(m.headers), func(i int) bool {
		return m.headers[i].Time > t
	})
	if i == 0 {
		return models.Header{}, fmt.Errorf("%w %d", ErrNoCheckpointBefore, t)
	}
	return m.headers[i-1], nil
}

// VerifyKnown checks that the lookup at k.BeforeTime lands on the expected checkpoint
func (m *Manager) VerifyKnown(k KnownCheckpoint) error {
	h, err := m.CheckpointBefore(k.BeforeTime)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIntegrityMismatch, err)
	}
	if h.Height != k.Height || h.Hash != k.Hash {
		return fmt.Errorf("%w: checkpoint before %d is %d/%s, want %d/%s", ErrIntegrityMismatch,
			k.BeforeTime, h.Height, h.Hash.Hex(), k.Height, k.Hash.Hex())
	}
	return nil
}

// VerifyWritten checks a reloaded file against the set and digest that were written
func (m *Manager) VerifyWritten(set *Set, digest common.Hash) error {
	if m.NumCheckpoints() != set.Len() {
		return fmt.Errorf("%w: wrote %d checkpoints, loaded %d", ErrIntegrityMismatch,
			set.Len(), m.NumCheckpoints())
	}
	if m.digest != digest {
		return fmt.Errorf("%w: wrote digest %s, loaded %s", ErrIntegrityMismatch,
			digest.Hex(), m.digest.Hex())
	}
	return nil
}
