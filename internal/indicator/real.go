//go:build linux

package indicator

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// SPI clock rate chosen so that one "logical" WS2811 bit is framed as
// three SPI bits (100 for a zero, 110 for a one), giving the ~1.25us
// total bit period the WS2811 datasheet wants at a round SPI frequency.
const spiFrequency = 2400 * physic.KiloHertz

// RealTransport bit-frames two LEDs' worth of WS2811 GRB payload over SPI,
// the same "protocol framed by hand over a raw bus handle" shape
// periph.io's own ds18b20 driver uses for one-wire ROM commands. No pack
// example ships a WS281x driver, so this is hand-rolled rather than
// imported.
type RealTransport struct {
	conn spi.Conn
}

// NewRealTransport opens port and configures it for WS2811 bit-framing.
func NewRealTransport(port spi.Port) (*RealTransport, error) {
	conn, err := port.Connect(spiFrequency, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("indicator: connect spi: %w", err)
	}
	return &RealTransport{conn: conn}, nil
}

// SetLEDs renders led0 then led1 onto the strip in one SPI transaction.
func (t *RealTransport) SetLEDs(led0, led1 Color) error {
	payload := append(frameColor(led0), frameColor(led1)...)
	return t.conn.Tx(payload, nil)
}

// Clear turns both LEDs off.
func (t *RealTransport) Clear() error {
	return t.SetLEDs(ColorOff, ColorOff)
}

// frameColor expands one GRB-ordered color into its SPI bit-framed byte
// sequence: 3 SPI bits per logical WS2811 bit, 24 logical bits per LED.
func frameColor(c Color) []byte {
	grb := []byte{c.G, c.R, c.B}
	bits := make([]bool, 0, 24)
	for _, b := range grb {
		for i := 7; i >= 0; i-- {
			bits = append(bits, b&(1<<i) != 0)
		}
	}

	out := make([]byte, 0, 9)
	var cur byte
	var nbits int
	push := func(b bool) {
		cur <<= 1
		if b {
			cur |= 1
		}
		nbits++
		if nbits == 8 {
			out = append(out, cur)
			cur, nbits = 0, 0
		}
	}
	for _, b := range bits {
		if b {
			push(true)
			push(true)
			push(false)
		} else {
			push(true)
			push(false)
			push(false)
		}
	}
	if nbits > 0 {
		cur <<= 8 - nbits
		out = append(out, cur)
	}
	return out
}
