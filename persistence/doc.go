// Package persistence implements the sectioned binary container used for
// saved indexes.
//
// A file is a 32-byte header followed by a fixed number of sections:
//
//	header  [magic u32][version u32][codec u8][pad 3][sections u32][reserved 16]
//	section [id u32][codec u8][pad 3][raw-len u64][stored-len u64][crc32 u32][pad 4][payload]
//
// All integers are little-endian. The CRC covers the stored (possibly
// compressed) payload. Payloads that do not shrink below 90% of their raw
// size are stored uncompressed. Every decoding failure wraps
// ErrInvalidFormat.
package persistence
