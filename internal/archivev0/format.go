// Package archivev0 implements the fixed-layout table-of-contents
// archive format: a header of four counts, NUL-terminated name tables,
// a 4-byte-aligned size table, then concatenated file data.
package archivev0

import "encoding/binary"

// Header is the four little-endian u32 counts at the start of every v0
// archive.
type Header struct {
	NumDirs       uint32
	NumFiles      uint32
	DirNamesSize  uint32
	FileNamesSize uint32
}

const headerSize = 16 // 4 x u32

func (h Header) encode() []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.NumDirs)
	binary.LittleEndian.PutUint32(buf[4:8], h.NumFiles)
	binary.LittleEndian.PutUint32(buf[8:12], h.DirNamesSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.FileNamesSize)
	return buf
}

func decodeHeader(buf []byte) Header {
	return Header{
		NumDirs:       binary.LittleEndian.Uint32(buf[0:4]),
		NumFiles:      binary.LittleEndian.Uint32(buf[4:8]),
		DirNamesSize:  binary.LittleEndian.Uint32(buf[8:12]),
		FileNamesSize: binary.LittleEndian.Uint32(buf[12:16]),
	}
}

// padTo4 returns the 0-3 zero bytes needed to bring offset to a 4-byte
// boundary.
func padTo4(offset int) int {
	return (4 - offset%4) % 4
}

// Regions describes the byte offsets of each section of a decoded v0
// archive, computed once from the header.
type Regions struct {
	Header
	DirNamesOff  int
	FileNamesOff int
	PadLen       int
	SizesOff     int
	SizesLen     int
	DataOff      int
}
