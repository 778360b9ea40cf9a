// Package buffer implements delay-gated playout buffers for sequenced media.
//
// Delayed restores sequence order with a sequence.Window and then holds each
// item until its release time (Item.Delay, in clock seconds) has passed.
// Adaptive additionally schedules that release time from an exponentially
// weighted estimate of inter-arrival delay and its variance, the classic
// VoIP jitter-buffer model:
//
//	buf, err := buffer.NewAdaptive[*buffer.Frame](1024, buffer.NewClock(buffer.Nanosecond))
//	if err != nil {
//	    return err
//	}
//	_ = buf.Put(buffer.NewFrame(seq, payload, 0.02))
//	for _, f := range buf.GetAll() {
//	    play(f.Payload)
//	}
//	log.Printf("playout delay %.3fs", buf.Current())
//
// Reads never block. All state of a buffer is guarded by a single mutex.
package buffer
