// Licensed under the MIT license which can be found in the LICENSE file.

package cemi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/LB-00/knx-tunnel/knx/util"
)

// ErrInvalidAddr indicates a malformed or out-of-range bus address.
var ErrInvalidAddr = errors.New("invalid address")

// IndividualAddr identifies a single device on the bus. It is composed of a
// 4-bit area, a 4-bit line and an 8-bit device number.
type IndividualAddr uint16

// NewIndividualAddr3 assembles an individual address from its components.
func NewIndividualAddr3(area, line, device uint8) IndividualAddr {
	return IndividualAddr(area&15)<<12 | IndividualAddr(line&15)<<8 | IndividualAddr(device)
}

// ParseIndividualAddr parses the dotted representation "area.line.device".
func ParseIndividualAddr(s string) (IndividualAddr, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q is not of the form area.line.device", ErrInvalidAddr, s)
	}

	area, err := parseAddrComponent(parts[0], 15)
	if err != nil {
		return 0, fmt.Errorf("%w: area in %q: %v", ErrInvalidAddr, s, err)
	}

	line, err := parseAddrComponent(parts[1], 15)
	if err != nil {
		return 0, fmt.Errorf("%w: line in %q: %v", ErrInvalidAddr, s, err)
	}

	device, err := parseAddrComponent(parts[2], 255)
	if err != nil {
		return 0, fmt.Errorf("%w: device in %q: %v", ErrInvalidAddr, s, err)
	}

	return NewIndividualAddr3(uint8(area), uint8(line), uint8(device)), nil
}

// Area returns the area component.
func (addr IndividualAddr) Area() uint8 {
	return uint8(addr >> 12)
}

// Line returns the line component.
func (addr IndividualAddr) Line() uint8 {
	return uint8(addr>>8) & 15
}

// Device returns the device component.
func (addr IndividualAddr) Device() uint8 {
	return uint8(addr)
}

// String generates the dotted representation.
func (addr IndividualAddr) String() string {
	return fmt.Sprintf("%d.%d.%d", addr.Area(), addr.Line(), addr.Device())
}

// Size returns the packed size.
func (IndividualAddr) Size() uint {
	return 2
}

// Pack assembles the address in the given buffer.
func (addr IndividualAddr) Pack(buffer []byte) {
	util.Pack(buffer, uint16(addr))
}

// Unpack parses the given data in order to initialize the address.
func (addr *IndividualAddr) Unpack(data []byte) (uint, error) {
	return util.Unpack(data, (*uint16)(addr))
}

// GroupAddr identifies a group of communication objects. The three-level
// representation splits the 16 bits into a 5-bit main group, a 3-bit middle
// group and an 8-bit sub group.
type GroupAddr uint16

// NewGroupAddr3 assembles a group address from its three-level components.
func NewGroupAddr3(main, middle, sub uint8) GroupAddr {
	return GroupAddr(main&31)<<11 | GroupAddr(middle&7)<<8 | GroupAddr(sub)
}

// NewGroupAddr2 assembles a group address from its two-level components.
func NewGroupAddr2(main uint8, sub uint16) GroupAddr {
	return GroupAddr(main&31)<<11 | GroupAddr(sub&2047)
}

// ParseGroupAddr parses a group address in one of its textual forms:
// "main/middle/sub", "main/sub" or a plain number.
func ParseGroupAddr(s string) (GroupAddr, error) {
	parts := strings.Split(s, "/")

	switch len(parts) {
	case 1:
		raw, err := parseAddrComponent(parts[0], 65535)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidAddr, s, err)
		}

		return GroupAddr(raw), nil

	case 2:
		main, err := parseAddrComponent(parts[0], 31)
		if err != nil {
			return 0, fmt.Errorf("%w: main group in %q: %v", ErrInvalidAddr, s, err)
		}

		sub, err := parseAddrComponent(parts[1], 2047)
		if err != nil {
			return 0, fmt.Errorf("%w: sub group in %q: %v", ErrInvalidAddr, s, err)
		}

		return NewGroupAddr2(uint8(main), uint16(sub)), nil

	case 3:
		main, err := parseAddrComponent(parts[0], 31)
		if err != nil {
			return 0, fmt.Errorf("%w: main group in %q: %v", ErrInvalidAddr, s, err)
		}

		middle, err := parseAddrComponent(parts[1], 7)
		if err != nil {
			return 0, fmt.Errorf("%w: middle group in %q: %v", ErrInvalidAddr, s, err)
		}

		sub, err := parseAddrComponent(parts[2], 255)
		if err != nil {
			return 0, fmt.Errorf("%w: sub group in %q: %v", ErrInvalidAddr, s, err)
		}

		return NewGroupAddr3(uint8(main), uint8(middle), uint8(sub)), nil
	}

	return 0, fmt.Errorf("%w: %q has too many components", ErrInvalidAddr, s)
}

// Main returns the main group component.
func (addr GroupAddr) Main() uint8 {
	return uint8(addr >> 11)
}

// Middle returns the middle group component.
func (addr GroupAddr) Middle() uint8 {
	return uint8(addr>>8) & 7
}

// Sub returns the sub group component.
func (addr GroupAddr) Sub() uint8 {
	return uint8(addr)
}

// String generates the three-level representation.
func (addr GroupAddr) String() string {
	return fmt.Sprintf("%d/%d/%d", addr.Main(), addr.Middle(), addr.Sub())
}

// Size returns the packed size.
func (GroupAddr) Size() uint {
	return 2
}

// Pack assembles the address in the given buffer.
func (addr GroupAddr) Pack(buffer []byte) {
	util.Pack(buffer, uint16(addr))
}

// Unpack parses the given data in order to initialize the address.
func (addr *GroupAddr) Unpack(data []byte) (uint, error) {
	return util.Unpack(data, (*uint16)(addr))
}

func parseAddrComponent(s string, max uint64) (uint64, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, err
	}

	if value > max {
		return 0, fmt.Errorf("%d exceeds maximum of %d", value, max)
	}

	return value, nil
}
