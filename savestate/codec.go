package savestate

import "encoding/binary"

// Writer fills a fixed-size state buffer with little-endian fields.
// Callers size the buffer up front; writing past the end panics.
type Writer struct {
	Buf []byte
	off int
}

// NewWriter returns a Writer positioned at the start of buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{Buf: buf}
}

func (w *Writer) U8(v uint8) {
	w.Buf[w.off] = v
	w.off++
}

func (w *Writer) Bool(v bool) { w.U8(BoolByte(v)) }

func (w *Writer) U16(v uint16) {
	binary.LittleEndian.PutUint16(w.Buf[w.off:], v)
	w.off += 2
}

func (w *Writer) U32(v uint32) {
	binary.LittleEndian.PutUint32(w.Buf[w.off:], v)
	w.off += 4
}

// I32 stores an int as a signed 32-bit value.
func (w *Writer) I32(v int) { w.U32(uint32(int32(v))) }

func (w *Writer) U64(v uint64) {
	binary.LittleEndian.PutUint64(w.Buf[w.off:], v)
	w.off += 8
}

func (w *Writer) Bytes(p []byte) {
	w.off += copy(w.Buf[w.off:], p)
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.off }

// Reader is the counterpart of Writer.
type Reader struct {
	Buf []byte
	off int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{Buf: buf}
}

func (r *Reader) U8() uint8 {
	v := r.Buf[r.off]
	r.off++
	return v
}

func (r *Reader) Bool() bool { return r.U8() != 0 }

func (r *Reader) U16() uint16 {
	v := binary.LittleEndian.Uint16(r.Buf[r.off:])
	r.off += 2
	return v
}

func (r *Reader) U32() uint32 {
	v := binary.LittleEndian.Uint32(r.Buf[r.off:])
	r.off += 4
	return v
}

func (r *Reader) I32() int { return int(int32(r.U32())) }

func (r *Reader) U64() uint64 {
	v := binary.LittleEndian.Uint64(r.Buf[r.off:])
	r.off += 8
	return v
}

func (r *Reader) Bytes(p []byte) {
	r.off += copy(p, r.Buf[r.off:r.off+len(p)])
}
