package lcore

import (
	"fmt"
	"math/big"
	"strings"
)

// Mask is a set of lcores, parsed from a hexadecimal CPU mask such as "0x3" or "f0".
type Mask struct {
	bits big.Int
}

// ParseMask parses a hexadecimal CPU mask.
// Empty string yields an empty mask, meaning no preference.
// Commas are permitted as word separators, as printed by /proc.
func ParseMask(input string) (m Mask, e error) {
	s := strings.ReplaceAll(strings.TrimSpace(input), ",", "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return m, nil
	}
	if _, ok := m.bits.SetString(s, 16); !ok || m.bits.Sign() < 0 {
		return Mask{}, fmt.Errorf("bad CPU mask %q", input)
	}
	if m.bits.BitLen() > MaxLCoreID+1 {
		return Mask{}, fmt.Errorf("CPU mask %q exceeds lcore %d", input, MaxLCoreID)
	}
	return m, nil
}

// MaskOf constructs a Mask from lcore IDs.
func MaskOf(ids ...int) (m Mask) {
	for _, id := range ids {
		if FromID(id).Valid() {
			m.bits.SetBit(&m.bits, id, 1)
		}
	}
	return m
}

// Empty returns true if no lcore is in the mask.
func (m Mask) Empty() bool {
	return m.bits.Sign() == 0
}

// Has determines whether an lcore is in the mask.
func (m Mask) Has(lc LCore) bool {
	return lc.Valid() && m.bits.Bit(lc.ID()) == 1
}

// List returns lcores in the mask, in ascending order.
func (m Mask) List() (list []LCore) {
	for id, n := 0, m.bits.BitLen(); id < n; id++ {
		if m.bits.Bit(id) == 1 {
			list = append(list, FromID(id))
		}
	}
	return list
}

func (m Mask) String() string {
	return "0x" + m.bits.Text(16)
}
