package libhikvision

import (
	"encoding/xml"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SADP multicast group devices answer inquiries on
var sadpGroup = &net.UDPAddr{IP: net.IPv4(239, 255, 255, 250), Port: 37020}

const probeRepeat = 3

// DiscoveredDevice is a device that answered a discovery probe
type DiscoveredDevice struct {
	XMLName           xml.Name `xml:"ProbeMatch"`
	UUID              string   `xml:"Uuid"`
	Types             string   `xml:"Types"`
	DeviceType        string   `xml:"DeviceType"`
	DeviceDescription string   `xml:"DeviceDescription"`
	SerialNumber      string   `xml:"DeviceSN"`
	CommandPort       int      `xml:"CommandPort"`
	HTTPPort          int      `xml:"HttpPort"`
	MAC               string   `xml:"MAC"`
	IPv4Address       string   `xml:"IPv4Address"`
	IPv4SubnetMask    string   `xml:"IPv4SubnetMask"`
	IPv4Gateway       string   `xml:"IPv4Gateway"`
	DHCP              bool     `xml:"DHCP"`
	SoftwareVersion   string   `xml:"SoftwareVersion"`
	Activated         bool     `xml:"Activated"`
}

type probe struct {
	XMLName xml.Name `xml:"Probe"`
	UUID    string   `xml:"Uuid"`
	Types   string   `xml:"Types"`
}

// CreateProbePacket creates a SADP inquiry carrying the given probe id
func CreateProbePacket(id string) []byte {
	payload, _ := xml.Marshal(probe{UUID: id, Types: "inquiry"})
	return append([]byte(xml.Header), payload...)
}

// ParseProbeMatch decodes a SADP reply
func ParseProbeMatch(data []byte) (DiscoveredDevice, error) {
	var device DiscoveredDevice
	if err := xml.Unmarshal(data, &device); err != nil {
		return DiscoveredDevice{}, fmt.Errorf("decoding probe match: %w", err)
	}
	if device.IPv4Address == "" && device.MAC == "" {
		return DiscoveredDevice{}, fmt.Errorf("probe match without address")
	}
	return device, nil
}

// Discover multicasts SADP inquiries and collects the replies until timeout
func Discover(timeout time.Duration) ([]DiscoveredDevice, error) {
	conn, err := net.ListenMulticastUDP("udp4", nil, sadpGroup)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	probeID := strings.ToUpper(uuid.NewString())
	go sendProbes(conn, CreateProbePacket(probeID), probeRepeat)

	devices := make([]DiscoveredDevice, 0)
	seen := make(map[string]bool)
	buffer := make([]byte, 4096)

	for {
		n, _, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return devices, nil
			}
			return devices, err
		}

		// our own inquiries come back through the group and fail to parse
		device, err := ParseProbeMatch(buffer[:n])
		if err != nil || device.Types != "inquiry" || !strings.EqualFold(device.UUID, probeID) {
			continue
		}

		key := device.MAC
		if key == "" {
			key = device.IPv4Address
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		devices = append(devices, device)
	}
}

func sendProbes(conn *net.UDPConn, packet []byte, count int) {
	for i := 0; i < count; i++ {
		if _, err := conn.WriteToUDP(packet, sadpGroup); err != nil {
			return
		}
		time.Sleep(time.Millisecond * 500)
	}
}
