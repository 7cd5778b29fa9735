//go:build linux

package sensors

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/devices/v3/ds18b20"
	"periph.io/x/devices/v3/ds248x"
	"periph.io/x/host/v3"
)

// bridgeI2CAddr is the DS2482/DS2483 I²C-to-1-wire bridge address.
const bridgeI2CAddr = 0x18

const probeResolutionBits = 10 // 0.25C, ~188ms conversion

// RealProber reads the three one-wire probes through a DS2482-class
// I²C-to-1-wire bridge, one per config-declared sensor ID.
type RealProber struct {
	mu      sync.Mutex
	bus     onewire.Bus
	return_ *ds18b20.Dev
	supply  *ds18b20.Dev
	coil    *ds18b20.Dev
}

// NewRealProber initializes periph, opens the default I²C bus, and attaches
// the three probes named by returnID/supplyID/coilID (config keys
// sensor.return/sensor.supply/sensor.coil).
func NewRealProber(returnID, supplyID, coilID string) (*RealProber, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("sensors: periph init: %w", err)
	}
	i2cBus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("sensors: open i2c bus: %w", err)
	}
	bridge, err := ds248x.New(i2cBus, bridgeI2CAddr, &ds248x.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("sensors: open one-wire bridge: %w", err)
	}

	r := &RealProber{bus: bridge}
	r.return_, err = r.attach(returnID)
	if err != nil {
		return nil, fmt.Errorf("sensors: return probe: %w", err)
	}
	r.supply, err = r.attach(supplyID)
	if err != nil {
		return nil, fmt.Errorf("sensors: supply probe: %w", err)
	}
	r.coil, err = r.attach(coilID)
	if err != nil {
		return nil, fmt.Errorf("sensors: coil probe: %w", err)
	}
	return r, nil
}

func (r *RealProber) attach(id string) (*ds18b20.Dev, error) {
	addr, err := parseOneWireID(id)
	if err != nil {
		return nil, err
	}
	return ds18b20.New(r.bus, addr, probeResolutionBits)
}

// Sense converts all three probes together and reads them back. A
// conversion or CRC failure on any one probe yields its sentinel without
// failing the other two.
func (r *RealProber) Sense() Reading {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ds18b20.ConvertAll(r.bus, probeResolutionBits); err != nil {
		return Reading{Return: InvalidTemperature, Supply: InvalidTemperature, Coil: InvalidTemperature}
	}
	return Reading{
		Return: r.readOne(r.return_),
		Supply: r.readOne(r.supply),
		Coil:   r.readOne(r.coil),
	}
}

func (r *RealProber) readOne(d *ds18b20.Dev) float64 {
	t, err := d.LastTemp()
	if err != nil {
		return InvalidTemperature
	}
	return celsiusToFahrenheit(t.Celsius())
}
