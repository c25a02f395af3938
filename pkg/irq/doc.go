// ABOUTME: Interrupt line package
// ABOUTME: Serialized, coalescing event dispatch standing in for a hardware IRQ
// Package irq provides Line, a host-side stand-in for a peripheral interrupt.
//
// A peripheral raises the line when its condition occurs (for example a
// transmit FIFO draining). The attached handler runs on the line's dispatcher
// goroutine, one invocation at a time, which gives handlers the same
// run-to-completion guarantee an interrupt service routine has.
//
// Example:
//
//	line := irq.New("i2s")
//	line.Attach(engine.HandleInterrupt)
//	line.Enable()
//	defer line.Disable()
package irq
