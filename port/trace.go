package port

import "fmt"

// Debugger receives trace output. transfer.Logger satisfies it.
type Debugger interface {
	Debug(msg string, keysAndValues ...interface{})
}

// Tracer wraps a Port and logs every register access.
type Tracer struct {
	port  Port
	log   Debugger
	reads bool
}

// Trace returns a Port that forwards to p and logs each access to log.
// When reads is false only writes are logged, which keeps status polling
// loops from flooding the output.
func Trace(p Port, log Debugger, reads bool) *Tracer {
	return &Tracer{port: p, log: log, reads: reads}
}

// ReadReg implements Port.
func (t *Tracer) ReadReg(r Register) byte {
	v := t.port.ReadReg(r)
	if t.reads {
		t.log.Debug("port read", "reg", r.String(), "value", fmt.Sprintf("0x%02X", v))
	}
	return v
}

// WriteReg implements Port.
func (t *Tracer) WriteReg(r Register, v byte) {
	t.log.Debug("port write", "reg", r.String(), "value", fmt.Sprintf("0x%02X", v))
	t.port.WriteReg(r, v)
}

// Err forwards the wrapped port's sticky error.
func (t *Tracer) Err() error {
	return Err(t.port)
}

// Close closes the wrapped port when it supports closing.
func (t *Tracer) Close() error {
	if c, ok := t.port.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
