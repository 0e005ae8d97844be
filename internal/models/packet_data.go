package models

import (
	"time"

	"github.com/google/gopacket/layers"
)

// Frame is one raw captured frame as read from a capture source.
type Frame struct {
	Timestamp time.Time
	LinkType  layers.LinkType
	Data      []byte
	// Length is the original wire length, which may exceed len(Data) when
	// the capture was truncated by the snap length.
	Length int
}

// PacketData holds the fields sliced out of a frame's lower layers.
type PacketData struct {
	Timestamp time.Time
	SrcIP     string
	DstIP     string
	SrcPort   int
	DstPort   int
	Transport string // "TCP", "UDP" or "" when no transport layer was found
	Length    int

	// Payload is the application-layer content. It aliases the frame data.
	Payload []byte
}
