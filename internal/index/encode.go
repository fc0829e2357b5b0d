package index

import (
	"bytes"
	"encoding/binary"
)

// weight > 0 的文档排最前（weight 升序），weight == 0 的排后面按时间倒序
func weightRank(w int) uint16 {
	if w <= 0 {
		return 0xFFFF
	}
	if w > 1000 {
		w = 1000
	}
	return uint16(w)
}

// key = rank(2) + invTime(8) + 0x00 + slug
func makeWeightTimeSlugKey(weight int, unixNano int64, slug string) []byte {
	rank := weightRank(weight)
	invTime := ^uint64(unixNano)

	buf := make([]byte, 0, 2+8+1+len(slug))

	tmp2 := make([]byte, 2)
	binary.BigEndian.PutUint16(tmp2, rank)
	buf = append(buf, tmp2...)

	tmp8 := make([]byte, 8)
	binary.BigEndian.PutUint64(tmp8, invTime)
	buf = append(buf, tmp8...)

	buf = append(buf, 0x00)
	buf = append(buf, []byte(slug)...)
	return buf
}

func slugFromWeightTimeSlugKey(k []byte) string {
	// rank(2) + invTime(8) + 0x00 + slug
	if len(k) < 2+8+2 {
		return ""
	}
	i := bytes.IndexByte(k[10:], 0x00)
	if i < 0 {
		return ""
	}
	pos := 10 + i
	if pos+1 >= len(k) {
		return ""
	}
	return string(k[pos+1:])
}
