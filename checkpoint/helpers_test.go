package checkpoint

import (
	"crypto/sha256"
	"encoding/binary"

	"checkpoint-builder/models"

	"github.com/ethereum/go-ethereum/common"
)

func testHash(height uint32) common.Hash {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], height)
	return common.Hash(sha256.Sum256(b[:]))
}

func testHeader(height uint32, time int64) models.Header {
	return models.Header{Height: height, Hash: testHash(height), Time: time}
}

func testSet(heights ...uint32) *Set {
	s := NewSet()
	for _, h := range heights {
		s.Put(testHeader(h, 1_000_000+int64(h)*60))
	}
	return s
}
