package uhf

// crcPolynomial is the reflected CCITT polynomial used by the reader firmware.
const crcPolynomial = 0x8408

// CRC16 calculates the reader frame checksum (CRC-16/MCRF4XX: init 0xFFFF,
// reflected input and output, no final xor).
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if (crc & 0x0001) != 0 {
				crc >>= 1
				crc ^= crcPolynomial
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// Checksum returns the two checksum bytes in wire order: low byte first.
func Checksum(data []byte) (lo, hi byte) {
	crc := CRC16(data)
	return byte(crc & 0xFF), byte(crc >> 8)
}
