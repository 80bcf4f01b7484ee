package model

import "fmt"

// Version is a packed major.minor.patch version. Packed versions order the
// same way as their components.
type Version uint32

// NewVersion packs a version.
func NewVersion(major, minor uint8, patch uint16) Version {
	return Version(uint32(major)<<24 | uint32(minor)<<16 | uint32(patch))
}

// Major returns the major component.
func (v Version) Major() uint8 { return uint8(v >> 24) }

// Minor returns the minor component.
func (v Version) Minor() uint8 { return uint8(v >> 16) }

// Patch returns the patch component.
func (v Version) Patch() uint16 { return uint16(v) }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}
