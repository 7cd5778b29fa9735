package indicator

// FakeTransport records the last-set colors for tests.
type FakeTransport struct {
	LED0, LED1 Color
	Cleared    int
	SetError   error
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

func (f *FakeTransport) SetLEDs(led0, led1 Color) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.LED0, f.LED1 = led0, led1
	return nil
}

func (f *FakeTransport) Clear() error {
	f.Cleared++
	f.LED0, f.LED1 = ColorOff, ColorOff
	return nil
}
