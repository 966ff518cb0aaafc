package dmproto

import (
	"bytes"
)

// Encoder 编码者，多字节数字一律小端写入（与存量设备的线上格式保持一致）
type Encoder struct {
	w *bytes.Buffer
}

// NewEncoder NewEncoder
func NewEncoder() *Encoder {

	return &Encoder{
		w: bytes.NewBuffer([]byte{}),
	}
}

// Bytes Bytes
func (e *Encoder) Bytes() []byte {
	return e.w.Bytes()
}

// Len Len
func (e *Encoder) Len() int {
	return e.w.Len()
}

// WriteUint8 WriteUint8
func (e *Encoder) WriteUint8(i uint8) {
	e.w.WriteByte(i)
}

// WriteUint16 小端写入16位
func (e *Encoder) WriteUint16(i uint16) {
	e.w.Write([]byte{
		byte(i & 0xFF),
		byte(i >> 8),
	})
}

// WriteUint32 小端写入32位
func (e *Encoder) WriteUint32(i uint32) {
	e.w.Write([]byte{
		byte(i & 0xFF),
		byte(i >> 8),
		byte(i >> 16),
		byte(i >> 24),
	})
}

// WriteUint64 小端写入64位
func (e *Encoder) WriteUint64(i uint64) {
	e.w.Write([]byte{
		byte(i & 0xFF),
		byte(i >> 8),
		byte(i >> 16),
		byte(i >> 24),
		byte(i >> 32),
		byte(i >> 40),
		byte(i >> 48),
		byte(i >> 56),
	})
}

// WriteBytes WriteBytes
func (e *Encoder) WriteBytes(b []byte) {
	e.w.Write(b)
}

// WriteFixedString 定长写入字符串，超长截断，不足补零
func (e *Encoder) WriteFixedString(str string, size int) {
	b := make([]byte, size)
	copy(b, str)
	e.w.Write(b)
}
