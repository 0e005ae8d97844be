package capture

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"wiresift/internal/models"
)

// Slicer strips link, network and transport headers from frames. It decodes
// only as far as TCP or UDP and never interprets the payload, so payload
// problems are left to the protocol registry. A Slicer reuses its layer
// buffers and must not be shared between goroutines.
type Slicer struct {
	eth     layers.Ethernet
	dot1q   layers.Dot1Q
	sll     layers.LinuxSLL
	ip4     layers.IPv4
	ip6     layers.IPv6
	tcp     layers.TCP
	udp     layers.UDP
	payload gopacket.Payload

	parsers map[gopacket.LayerType]*gopacket.DecodingLayerParser
	decoded []gopacket.LayerType
}

// NewSlicer returns a ready Slicer.
func NewSlicer() *Slicer {
	return &Slicer{
		parsers: make(map[gopacket.LayerType]*gopacket.DecodingLayerParser),
		decoded: make([]gopacket.LayerType, 0, 8),
	}
}

// Slice decodes the lower layers of f. Frames without a TCP or UDP layer
// (ARP, ICMP, ...) produce an empty payload and no error. Malformed headers
// produce an error.
func (s *Slicer) Slice(f models.Frame) (models.PacketData, error) {
	pkt := models.PacketData{Timestamp: f.Timestamp, Length: f.Length}
	if pkt.Length == 0 {
		pkt.Length = len(f.Data)
	}

	first, err := firstLayer(f.LinkType, f.Data)
	if err != nil {
		return pkt, err
	}

	if err := s.parser(first).DecodeLayers(f.Data, &s.decoded); err != nil {
		return pkt, fmt.Errorf("failed to decode %s frame: %w", f.LinkType, err)
	}

	for _, lt := range s.decoded {
		switch lt {
		case layers.LayerTypeIPv4:
			pkt.SrcIP, pkt.DstIP = s.ip4.SrcIP.String(), s.ip4.DstIP.String()
		case layers.LayerTypeIPv6:
			pkt.SrcIP, pkt.DstIP = s.ip6.SrcIP.String(), s.ip6.DstIP.String()
		case layers.LayerTypeTCP:
			pkt.Transport = "TCP"
			pkt.SrcPort, pkt.DstPort = int(s.tcp.SrcPort), int(s.tcp.DstPort)
			pkt.Payload = s.tcp.Payload
		case layers.LayerTypeUDP:
			pkt.Transport = "UDP"
			pkt.SrcPort, pkt.DstPort = int(s.udp.SrcPort), int(s.udp.DstPort)
			pkt.Payload = s.udp.Payload
		}
	}
	return pkt, nil
}

func (s *Slicer) parser(first gopacket.LayerType) *gopacket.DecodingLayerParser {
	if p, ok := s.parsers[first]; ok {
		return p
	}
	p := gopacket.NewDecodingLayerParser(first,
		&s.eth, &s.dot1q, &s.sll, &s.ip4, &s.ip6, &s.tcp, &s.udp, &s.payload)
	// Application protocols picked by port (DNS on 53, ...) are not decoded
	// here.
	p.IgnoreUnsupported = true
	s.parsers[first] = p
	return p
}

func firstLayer(lt layers.LinkType, data []byte) (gopacket.LayerType, error) {
	switch lt {
	case layers.LinkTypeEthernet:
		return layers.LayerTypeEthernet, nil
	case layers.LinkTypeLinuxSLL:
		return layers.LayerTypeLinuxSLL, nil
	case layers.LinkTypeIPv4:
		return layers.LayerTypeIPv4, nil
	case layers.LinkTypeIPv6:
		return layers.LayerTypeIPv6, nil
	case layers.LinkTypeRaw:
		if len(data) > 0 && data[0]>>4 == 6 {
			return layers.LayerTypeIPv6, nil
		}
		return layers.LayerTypeIPv4, nil
	}
	return gopacket.LayerTypeZero, fmt.Errorf("%w: %s", ErrUnsupportedLinkType, lt)
}
