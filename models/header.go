package models

import "github.com/ethereum/go-ethereum/common"

// Header is the metadata captured for a best-chain block
type Header struct {
	Height uint32      `json:"height"` // block height
	Hash   common.Hash `json:"hash"`   // block hash, big-endian
	Time   int64       `json:"time"`   // block timestamp, unix seconds
}
