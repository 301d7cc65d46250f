package protocol

// FFEChecksum computes the checksum of an FFE frame header or data block:
// the XOR of every byte, seeded with FFEChecksumSeed.
func FFEChecksum(data []byte) byte {
	sum := byte(FFEChecksumSeed)
	for _, b := range data {
		sum ^= b
	}
	return sum
}
