//go:build linux

package display

import (
	"fmt"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/hd44780"
)

const (
	lcdRows = 4
	lcdCols = 20
)

// RealTransport drives one 20x4 character LCD behind a PCF8574 I²C
// backpack, reached through a TCA9548A channel.
type RealTransport struct {
	lcd *hd44780.HD44780
}

// NewRealTransport opens the LCD on the given multiplexer channel.
// muxAddr/lcdAddr are the TCA9548A and PCF8574 I²C addresses.
func NewRealTransport(bus i2c.Bus, muxAddr uint16, channel uint8, lcdAddr uint16) (*RealTransport, error) {
	chBus, err := newMuxChannelBus(bus, muxAddr, channel)
	if err != nil {
		return nil, err
	}
	lcd, err := hd44780.NewPCF857xBackpack(chBus, lcdAddr, lcdRows, lcdCols)
	if err != nil {
		return nil, fmt.Errorf("display: open lcd on channel %d: %w", channel, err)
	}
	return &RealTransport{lcd: lcd}, nil
}

// WriteLine positions the cursor at the start of row and writes text,
// which the caller has already padded to the display's column count.
func (t *RealTransport) WriteLine(row int, text string) error {
	if err := t.lcd.MoveTo(row, 0); err != nil {
		return err
	}
	_, err := t.lcd.WriteString(text)
	return err
}

// Clear implements Transport.
func (t *RealTransport) Clear() error {
	return t.lcd.Clear()
}

// Backlight implements Transport.
func (t *RealTransport) Backlight(on bool) error {
	intensity := display.Intensity(0)
	if on {
		intensity = 255
	}
	return t.lcd.Backlight(intensity)
}
