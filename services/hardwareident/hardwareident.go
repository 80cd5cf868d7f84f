// Copyright 2025 EngFlow Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package hardwareident derives a stable 64-bit identifier for the host
// running a generated service, for components whose IDL carries a
// hardware-identification attribute. The identifier is stable across
// process restarts on the same machine and differs across machines, but
// is deliberately not cryptographically unguessable.
package hardwareident

import (
	"encoding/binary"
	"fmt"
	"net"
)

// GetHardwareID returns a 64-bit identifier derived from the MAC address
// of the host's first non-loopback network interface that has a hardware
// address, whether or not that interface is up. It returns an error if no
// such interface can be found.
func GetHardwareID() (uint64, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return 0, fmt.Errorf("enumerate network interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		return macToUint64(iface.HardwareAddr), nil
	}
	return 0, fmt.Errorf("no network interface with a hardware address was found")
}

// macToUint64 packs a MAC address's bytes (6, or occasionally 8 for
// some link types) into a uint64, most significant byte first.
func macToUint64(mac net.HardwareAddr) uint64 {
	var buf [8]byte
	n := len(mac)
	if n > 8 {
		n = 8
	}
	copy(buf[8-n:], mac[:n])
	return binary.BigEndian.Uint64(buf[:])
}
