package gamestate

import "fmt"

// maskBits caps the number of distinct component types a world can register.
// Archetypes are identified by their component mask, so the mask must be a
// comparable fixed-size value to serve as a map key.
const maskBits = 256

// Mask is a fixed 256-bit set of component ids. Each bit corresponds to one
// registered ComponentID; a set bit means the component is present in the
// archetype's component set.
type Mask [4]uint64

// Set enables the bit for the given component id.
func (m *Mask) Set(bit int) {
	if bit < 0 || bit >= maskBits {
		panic(fmt.Sprintf("component id %d out of mask range [0, %d)", bit, maskBits))
	}
	m[bit>>6] |= uint64(1) << uint64(bit&63)
}

// Unset disables the bit for the given component id.
func (m *Mask) Unset(bit int) {
	if bit < 0 || bit >= maskBits {
		panic(fmt.Sprintf("component id %d out of mask range [0, %d)", bit, maskBits))
	}
	m[bit>>6] &= ^(uint64(1) << uint64(bit&63))
}

// Contains reports whether the bit for the given component id is set.
func (m Mask) Contains(bit int) bool {
	if bit < 0 || bit >= maskBits {
		return false
	}
	return (m[bit>>6] & (uint64(1) << uint64(bit&63))) != 0
}

// ContainsAll reports whether every bit set in sub is also set in m.
func (m Mask) ContainsAll(sub Mask) bool {
	return (m[0]&sub[0]) == sub[0] &&
		(m[1]&sub[1]) == sub[1] &&
		(m[2]&sub[2]) == sub[2] &&
		(m[3]&sub[3]) == sub[3]
}

// Intersects reports whether m and other share at least one set bit.
func (m Mask) Intersects(other Mask) bool {
	return (m[0]&other[0]) != 0 ||
		(m[1]&other[1]) != 0 ||
		(m[2]&other[2]) != 0 ||
		(m[3]&other[3]) != 0
}

// IsZero reports whether no bits are set.
func (m Mask) IsZero() bool {
	return m == Mask{}
}
