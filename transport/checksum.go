package transport

// Checksum computes the RFC 1071 internet checksum of data: the one's
// complement of the one's-complement sum of its 16-bit big-endian words.
// An odd trailing byte is padded with zero. The 16-bit result is widened
// to fit the 64-bit checksum field of a PUSH frame.
func Checksum(data []byte) uint64 {
	var sum uint64

	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		sum += uint64(data[i])<<8 | uint64(data[i+1])
	}
	if n%2 == 1 {
		sum += uint64(data[n-1]) << 8
	}

	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}

	return uint64(^uint16(sum))
}
