// Package sequence provides a fixed-capacity sliding window that maps
// monotonically increasing 64-bit sequence numbers to items.
//
// The same Window type backs both halves of the reliable transport (the
// outbound window of unacknowledged pushes and the inbound reordering
// window) as well as the reordering stage of the jitter buffer.
//
// # Model
//
// A window holds capacity slots. Slot 0 always corresponds to the sequence
// number Offset(); slot i corresponds to Offset()+i. Items may be stored
// out of order anywhere inside the window, but are only drained from slot
// 0, which keeps delivery strictly in sequence order:
//
//	w, _ := sequence.New[[]byte](1024)
//	_ = w.Put(2, c)
//	_ = w.Put(0, a)
//	_ = w.Put(1, b)
//	for w.Ready() {
//	    item, _ := w.Next() // a, b, c
//	    deliver(item)
//	}
//
// PutNext appends at the trailing caret and is what a sender uses to
// number fresh items. Advance discards acknowledged slots and slides the
// window forward.
//
// # Concurrency
//
// Every method is safe for concurrent use. Offset, caret and slot contents
// are guarded by a single lock so they always move together.
package sequence
