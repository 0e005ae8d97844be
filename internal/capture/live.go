package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"wiresift/internal/models"
)

// LiveConfig controls how an interface is opened.
type LiveConfig struct {
	Filter  string
	SnapLen int
	Promisc bool
	// ReadTimeout bounds each blocking read so cancellation is noticed.
	// Defaults to 250ms.
	ReadTimeout time.Duration
}

// LiveSource reads frames from a network interface through libpcap.
type LiveSource struct {
	handle   *pcap.Handle
	linkType layers.LinkType
}

// OpenLive opens interfaceName for capture.
func OpenLive(interfaceName string, cfg LiveConfig) (*LiveSource, error) {
	if cfg.SnapLen <= 0 {
		cfg.SnapLen = 65536
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 250 * time.Millisecond
	}

	handle, err := pcap.OpenLive(interfaceName, int32(cfg.SnapLen), cfg.Promisc, cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open handle: %w", err)
	}

	if cfg.Filter != "" {
		if err := handle.SetBPFFilter(cfg.Filter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("could not set BPF filter: %w", err)
		}
	}

	return &LiveSource{handle: handle, linkType: handle.LinkType()}, nil
}

// Next blocks until a frame arrives or ctx is done.
func (s *LiveSource) Next(ctx context.Context) (models.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return models.Frame{}, err
		}
		data, ci, err := s.handle.ReadPacketData()
		if errors.Is(err, pcap.NextErrorTimeoutExpired) {
			continue
		}
		if err != nil {
			return models.Frame{}, err
		}
		return models.Frame{
			Timestamp: ci.Timestamp,
			LinkType:  s.linkType,
			Data:      data,
			Length:    ci.Length,
		}, nil
	}
}

func (s *LiveSource) Close() error {
	s.handle.Close()
	return nil
}
