package serialization

import "errors"

var (
	// ErrBadMagic means the file does not start with the LUMO magic.
	ErrBadMagic = errors.New("serialization: not a lumo file")

	// ErrVersion means the format version is newer than this library.
	ErrVersion = errors.New("serialization: unsupported format version")

	// ErrChecksum means the data section does not match the header
	// checksum.
	ErrChecksum = errors.New("serialization: data checksum mismatch")

	// ErrTruncated means the file ended before the header said it
	// would.
	ErrTruncated = errors.New("serialization: truncated file")
)
