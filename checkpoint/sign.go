package checkpoint

import (
	"encoding/binary"
	"fmt"
	"io"
)

// AttachSignatures copies an unsigned checkpoints file from src to dst with
// sigs inserted after the signature count. The digest region is copied
// unchanged, so the digest reported by Write still covers it. Signatures are
// opaque here; producing and checking them belongs to the signer.
func AttachSignatures(dst io.Writer, src io.Reader, sigs [][]byte) error {
	if len(sigs) == 0 || len(sigs) > MaxSignatures {
		return fmt.Errorf("%w: %d", ErrSignatureCount, len(sigs))
	}
	for i, sig := range sigs {
		if len(sig) != SignatureSize {
			return fmt.Errorf("%w: signature %d is %d bytes, want %d", ErrSignatureSize, i, len(sig), SignatureSize)
		}
	}

	header := make([]byte, len(Magic)+4)
	if _, err := io.ReadFull(src, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return &MalformedFileError{Reason: ReasonBadMagic, Offset: 0}
		}
		return &IOError{Op: "read", Err: err}
	}
	if string(header[:len(Magic)]) != Magic {
		return &MalformedFileError{Reason: ReasonBadMagic, Offset: 0}
	}
	if n := binary.BigEndian.Uint32(header[len(Magic):]); n != 0 {
		return fmt.Errorf("%w: %d present", ErrAlreadySigned, n)
	}

	binary.BigEndian.PutUint32(header[len(Magic):], uint32(len(sigs)))
	if _, err := dst.Write(header); err != nil {
		return &IOError{Op: "write", Err: err}
	}
	for _, sig := range sigs {
		if _, err := dst.Write(sig); err != nil {
			return &IOError{Op: "write", Err: err}
		}
	}
	if _, err := io.Copy(dst, src); err != nil {
		return &IOError{Op: "copy", Err: err}
	}
	return nil
}
