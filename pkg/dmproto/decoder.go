package dmproto

import "fmt"

// Decoder 解码，多字节数字按小端逐字节或运算累加
type Decoder struct {
	p      []byte
	offset int
}

// NewDecoder NewDecoder
func NewDecoder(p []byte) *Decoder {
	return &Decoder{
		p: p,
	}
}

// Len 剩余长度
func (d *Decoder) Len() int {
	return len(d.p) - d.offset
}

// Uint8 Uint8
func (d *Decoder) Uint8() (uint8, error) {
	if d.offset+1 > len(d.p) {
		return 0, fmt.Errorf("Decoder couldn't read expect bytes %d of %d", d.offset+1, len(d.p))
	}
	b := d.p[d.offset]
	d.offset += 1
	return b, nil
}

// Uint16 Uint16
func (d *Decoder) Uint16() (uint16, error) {
	if d.offset+2 > len(d.p) {
		return 0, fmt.Errorf("Decoder couldn't read expect bytes %d of %d", d.offset+2, len(d.p))
	}
	b := d.p[d.offset : d.offset+2]
	d.offset += 2
	return uint16(b[0]) | (uint16(b[1]) << 8), nil
}

// Uint32 Uint32
func (d *Decoder) Uint32() (uint32, error) {
	if d.offset+4 > len(d.p) {
		return 0, fmt.Errorf("Decoder couldn't read expect bytes %d of %d", d.offset+4, len(d.p))
	}
	b := d.p[d.offset : d.offset+4]
	d.offset += 4
	return uint32(b[0]) | (uint32(b[1]) << 8) | (uint32(b[2]) << 16) | (uint32(b[3]) << 24), nil
}

// Uint64 Uint64
func (d *Decoder) Uint64() (uint64, error) {
	if d.offset+8 > len(d.p) {
		return 0, fmt.Errorf("Decoder couldn't read expect bytes %d of %d", d.offset+8, len(d.p))
	}
	b := d.p[d.offset : d.offset+8]
	d.offset += 8
	return uint64(b[0]) | (uint64(b[1]) << 8) | (uint64(b[2]) << 16) | (uint64(b[3]) << 24) |
		(uint64(b[4]) << 32) | (uint64(b[5]) << 40) | (uint64(b[6]) << 48) | (uint64(b[7]) << 56), nil
}

// Bytes Bytes
func (d *Decoder) Bytes(num int) ([]byte, error) {
	if d.offset+num > len(d.p) {
		return nil, fmt.Errorf("Decoder couldn't read expect bytes %d of %d", d.offset+num, len(d.p))
	}
	b := d.p[d.offset : d.offset+num]
	d.offset += num
	return b, nil
}

// FixedString 定长读取字符串，去掉补零
func (d *Decoder) FixedString(size int) (string, error) {
	b, err := d.Bytes(size)
	if err != nil {
		return "", err
	}
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end]), nil
}
