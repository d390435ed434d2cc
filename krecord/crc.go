package krecord

import "hash/crc32"

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

func checksum(p []byte) uint32 {
	return crc32.Checksum(p, castagnoliTable)
}
