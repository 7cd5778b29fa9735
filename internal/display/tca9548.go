package display

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// muxChannelBus is a periph i2c.Bus that selects a TCA9548A channel ahead
// of every transaction, by writing a single control-register byte. The two
// character LCDs share one physical I²C bus through distinct channels of
// this multiplexer.
type muxChannelBus struct {
	parent  i2c.Bus
	muxAddr uint16
	channel uint8
}

// newMuxChannelBus returns an i2c.Bus that transparently selects channel
// on the TCA9548A at muxAddr before forwarding each transaction to parent.
func newMuxChannelBus(parent i2c.Bus, muxAddr uint16, channel uint8) (*muxChannelBus, error) {
	if channel > 7 {
		return nil, fmt.Errorf("display: mux channel must be 0-7, got %d", channel)
	}
	return &muxChannelBus{parent: parent, muxAddr: muxAddr, channel: channel}, nil
}

// Tx selects this bus's channel, then forwards the transaction.
func (b *muxChannelBus) Tx(addr uint16, w, r []byte) error {
	if err := b.parent.Tx(b.muxAddr, []byte{1 << b.channel}, nil); err != nil {
		return fmt.Errorf("display: select mux channel %d: %w", b.channel, err)
	}
	return b.parent.Tx(addr, w, r)
}

// SetSpeed implements i2c.Bus by delegating to the parent bus.
func (b *muxChannelBus) SetSpeed(f physic.Frequency) error {
	return b.parent.SetSpeed(f)
}

// Halt implements conn.Resource. The multiplexer itself needs no cleanup;
// the parent bus owns the physical handle.
func (b *muxChannelBus) Halt() error {
	return nil
}

// String implements fmt.Stringer.
func (b *muxChannelBus) String() string {
	return fmt.Sprintf("tca9548(ch%d)", b.channel)
}
