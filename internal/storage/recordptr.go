package storage

import "fmt"

// RecordPtr addresses one record by page number and slot within the page.
// It is the payload stored in the primary index.
type RecordPtr struct {
	Page int32
	Slot int32
}

// NilRecordPtr means "no record".
var NilRecordPtr = RecordPtr{Page: -1, Slot: -1}

// IsNil reports whether p is the sentinel.
func (p RecordPtr) IsNil() bool { return p == NilRecordPtr }

// Compare orders pointers by page, then slot.
func (p RecordPtr) Compare(other RecordPtr) int {
	switch {
	case p.Page < other.Page:
		return -1
	case p.Page > other.Page:
		return 1
	case p.Slot < other.Slot:
		return -1
	case p.Slot > other.Slot:
		return 1
	}
	return 0
}

// Less reports whether p orders before other.
func (p RecordPtr) Less(other RecordPtr) bool { return p.Compare(other) < 0 }

func (p RecordPtr) String() string { return fmt.Sprintf("(%d,%d)", p.Page, p.Slot) }

// Encode writes the page and slot as two int32 values.
func (p RecordPtr) Encode(e *Encoder) {
	e.Int32(p.Page)
	e.Int32(p.Slot)
}

// DecodeRecordPtr reads a pointer written by Encode.
func DecodeRecordPtr(d *Decoder) RecordPtr {
	page := d.Int32()
	slot := d.Int32()
	return RecordPtr{Page: page, Slot: slot}
}
