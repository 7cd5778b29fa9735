package sensors

import (
	"encoding/hex"
	"fmt"
	"strings"

	"periph.io/x/conn/v3/onewire"
)

// parseOneWireID turns a sensor ID string of the form "28-xxxxxxxxxxxx"
// into the 64-bit
// ROM address periph's onewire package addresses devices by: family code
// in the low byte, six bytes of serial above it, and the Dallas/Maxim
// CRC8 of the first seven bytes in the high byte.
func parseOneWireID(id string) (onewire.Address, error) {
	family, serial, ok := strings.Cut(id, "-")
	if !ok || len(family) != 2 || len(serial) != 12 {
		return 0, fmt.Errorf("sensors: malformed one-wire id %q", id)
	}
	raw, err := hex.DecodeString(family + serial)
	if err != nil {
		return 0, fmt.Errorf("sensors: malformed one-wire id %q: %w", id, err)
	}
	crc := crc8Dallas(raw)

	var addr uint64
	for i := len(raw) - 1; i >= 0; i-- {
		addr = addr<<8 | uint64(raw[i])
	}
	addr |= uint64(crc) << 56
	return onewire.Address(addr), nil
}

// crc8Dallas computes the 1-Wire CRC8 (polynomial 0x8C, LSB-first) Maxim's
// ROM codes and scratchpads are checked with.
func crc8Dallas(data []byte) byte {
	var crc byte
	for _, b := range data {
		for i := 0; i < 8; i++ {
			mix := (crc ^ b) & 0x01
			crc >>= 1
			if mix != 0 {
				crc ^= 0x8C
			}
			b >>= 1
		}
	}
	return crc
}
