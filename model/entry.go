package model

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/brimdata/zml/zcode"
	"github.com/brimdata/zml/zqe"
)

// Entry layout, little endian:
//
//	[8]byte signature
//	u32     header version
//	u32     written version
//	u32     readable version
//	u32     read-back version
//	uvarint length, loader signature
//	uvarint length, zcode body
const headerVersion = 1

const fixedHeaderLen = SignatureLen + 4*4

// EncodeEntry returns the entry for body saved by an object with version
// info v.
func EncodeEntry(v VersionInfo, body zcode.Bytes) ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	b := make([]byte, 0, fixedHeaderLen+len(v.Loader)+len(body)+2*binary.MaxVarintLen64)
	b = append(b, v.Signature...)
	b = binary.LittleEndian.AppendUint32(b, headerVersion)
	b = binary.LittleEndian.AppendUint32(b, v.Written)
	b = binary.LittleEndian.AppendUint32(b, v.Readable)
	b = binary.LittleEndian.AppendUint32(b, v.ReadBack)
	b = zcode.AppendUvarint(b, uint64(len(v.Loader)))
	b = append(b, v.Loader...)
	b = zcode.AppendUvarint(b, uint64(len(body)))
	return append(b, body...), nil
}

// DecodeEntry splits an entry into its header and body.  It checks only the
// framing; use VersionInfo.Check to check the header.
func DecodeEntry(b []byte) (VersionInfo, zcode.Bytes, error) {
	var v VersionInfo
	if len(b) < fixedHeaderLen {
		return v, nil, zqe.E(zqe.Decode, "model entry too short (%d bytes)", len(b))
	}
	v.Signature = string(b[:SignatureLen])
	off := SignatureLen
	if hv := binary.LittleEndian.Uint32(b[off:]); hv != headerVersion {
		return v, nil, zqe.E(zqe.Decode, "model %s: unknown header version %d", v.Signature, hv)
	}
	v.Written = binary.LittleEndian.Uint32(b[off+4:])
	v.Readable = binary.LittleEndian.Uint32(b[off+8:])
	v.ReadBack = binary.LittleEndian.Uint32(b[off+12:])
	rest := b[fixedHeaderLen:]
	loader, rest, err := counted(rest)
	if err != nil {
		return v, nil, zqe.E(zqe.Decode, "model %s: loader signature: %s", v.Signature, err)
	}
	v.Loader = string(loader)
	body, rest, err := counted(rest)
	if err != nil {
		return v, nil, zqe.E(zqe.Decode, "model %s: body: %s", v.Signature, err)
	}
	if len(rest) != 0 {
		return v, nil, zqe.E(zqe.Decode, "model %s: %d bytes after body", v.Signature, len(rest))
	}
	return v, body, nil
}

func counted(b []byte) ([]byte, []byte, error) {
	u, n := zcode.Uvarint(b)
	if n <= 0 {
		return nil, nil, errors.New("bad length")
	}
	b = b[n:]
	if u > uint64(len(b)) {
		return nil, nil, fmt.Errorf("declared length %d exceeds the %d bytes remaining", u, len(b))
	}
	return b[:u], b[u:], nil
}
