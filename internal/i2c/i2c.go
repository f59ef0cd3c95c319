// Package i2c is a small Linux I2C client used to reach GPS modules wired to
// an I2C bus instead of a UART.
package i2c

import "fmt"

const (
	// DefaultAddr is where MediaTek based GPS modules answer.
	DefaultAddr = 0x10
	// MaxTransfer bounds a single message.
	MaxTransfer = 255
)

// ValidAddr rejects the general call address and anything beyond 7 bits.
func ValidAddr(addr uint16) error {
	if addr == 0 || addr > 0x7F {
		return fmt.Errorf("i2c: invalid addr 0x%X", addr)
	}
	return nil
}

// BusPath is the device node for adapter n.
func BusPath(n int) string { return fmt.Sprintf("/dev/i2c-%d", n) }
