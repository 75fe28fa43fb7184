// Package model implements the versioned binary format of saved
// transformers.
//
// A saved model is an archive of named entries.  Each entry starts with a
// fixed header carrying an 8-byte signature naming the kind of the saved
// object, a version triple and the signature of the loader that wrote it.
// The header is followed by a body of zcode values whose layout is private to
// the saved object.  Composite objects such as transformer chains save their
// parts as entries of sub-directories of the archive.
package model

import (
	"fmt"

	"github.com/brimdata/zml/zqe"
)

// VersionInfo identifies the format of an entry.  An object that saves
// itself declares its VersionInfo; the same values are written to the entry
// header.
//
// Written is the version of the format this code writes.  Readable is the
// oldest version of the code that can read what this code writes.  ReadBack
// is the oldest written version this code can still read.  A format that
// gains a backward-compatible field increments Written and keeps Readable.
type VersionInfo struct {
	Signature string
	Written   uint32
	Readable  uint32
	ReadBack  uint32
	Loader    string
}

const SignatureLen = 8

// Validate checks that v is well formed.
func (v VersionInfo) Validate() error {
	if len(v.Signature) != SignatureLen {
		return zqe.E(zqe.Invalid, "model signature %q is not %d bytes", v.Signature, SignatureLen)
	}
	if v.Readable > v.Written || v.ReadBack > v.Written {
		return zqe.E(zqe.Invalid, "model %s: inconsistent versions %s", v.Signature, v.versions())
	}
	if v.Loader == "" {
		return zqe.E(zqe.Invalid, "model %s: missing loader signature", v.Signature)
	}
	return nil
}

// Check returns a Decode error unless this code, which reads the format
// described by v, can read an entry with header h.
func (v VersionInfo) Check(h VersionInfo) error {
	if h.Signature != v.Signature {
		return zqe.E(zqe.Decode, "model signature mismatch: expected %q, found %q", v.Signature, h.Signature)
	}
	if h.Loader != v.Loader {
		return zqe.E(zqe.Decode, "model %s: expected loader %q, found %q", v.Signature, v.Loader, h.Loader)
	}
	if h.Readable > v.Written {
		return zqe.E(zqe.Decode, "model %s requires format version %d or later, this code has version %d", v.Signature, h.Readable, v.Written)
	}
	if h.Written < v.ReadBack {
		return zqe.E(zqe.Decode, "model %s has format version %d, this code reads back to version %d", v.Signature, h.Written, v.ReadBack)
	}
	return nil
}

func (v VersionInfo) versions() string {
	return fmt.Sprintf("%d/%d/%d", v.Written, v.Readable, v.ReadBack)
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("%s v%s (%s)", v.Signature, v.versions(), v.Loader)
}
