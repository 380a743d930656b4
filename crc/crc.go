// Package crc implements CRC-8 as used by Sensirion humidity sensors:
// polynomial 0x31 (x^8 + x^5 + x^4 + 1), init 0xff, no reflection, no final xor.
package crc

const CRC_POLY_31 byte = 0x31
const CRC_INIT_SENSIRION byte = 0xff

func CRC8_p31(crc, data byte) byte {
	crc ^= data
	var i byte = 0
	for ; i < 8; i++ {
		if (crc & 0x80) != 0 {
			crc <<= 1
			crc ^= CRC_POLY_31
		} else {
			crc <<= 1
		}
	}
	return crc
}

func CRC8_p31_2b(b1, b2 byte) byte {
	out := CRC8_p31(CRC_INIT_SENSIRION, b1)
	out = CRC8_p31(out, b2)
	return out
}

func Sensirion(bs []byte) byte {
	out := CRC_INIT_SENSIRION
	for _, b := range bs {
		out = CRC8_p31(out, b)
	}
	return out
}
