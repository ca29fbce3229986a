package checkpoint

import (
	"encoding/binary"

	"checkpoint-builder/models"

	"github.com/ethereum/go-ethereum/common"
)

// File layout, all integers big-endian:
//
//	magic        13 bytes  "CHECKPOINTS 1"
//	sig count     4 bytes
//	signatures   65 bytes each
//	record count  4 bytes  <- digest starts here
//	records      44 bytes each
const (
	Magic         = "CHECKPOINTS 1"
	SignatureSize = 65
	MaxSignatures = 255
	RecordSize    = 4 + common.HashLength + 8
)

func encodeRecord(buf []byte, h models.Header) {
	binary.BigEndian.PutUint32(buf[0:4], h.Height)
	copy(buf[4:4+common.HashLength], h.Hash[:])
	binary.BigEndian.PutUint64(buf[4+common.HashLength:], uint64(h.Time))
}

func decodeRecord(buf []byte) models.Header {
	return models.Header{
		Height: binary.BigEndian.Uint32(buf[0:4]),
		Hash:   common.BytesToHash(buf[4 : 4+common.HashLength]),
		Time:   int64(binary.BigEndian.Uint64(buf[4+common.HashLength:])),
	}
}
