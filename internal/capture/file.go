package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"wiresift/internal/models"
)

var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// FileSource reads frames from a pcap or pcapng file.
type FileSource struct {
	file     *os.File
	reader   packetReader
	linkType layers.LinkType
	bar      *mpb.Bar
}

// OpenFile opens a capture file. The format is detected from the leading
// magic number. When progress is non-nil a bar tracking bytes read is added
// to it.
func OpenFile(path string, progress *mpb.Progress) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}

	s := &FileSource{file: f}
	var r io.Reader = f
	if progress != nil {
		if info, err := f.Stat(); err == nil {
			s.bar = progress.AddBar(info.Size(),
				mpb.BarOptional(mpb.BarRemoveOnComplete(), true),
				mpb.PrependDecorators(
					decor.Name(filepath.Base(path), decor.WCSyncSpaceR),
				),
				mpb.AppendDecorators(
					decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncWidth),
					decor.Percentage(decor.WCSyncSpace),
				),
			)
			r = s.bar.ProxyReader(f)
		}
	}

	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, err)
	}

	if bytes.Equal(magic, pcapngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, err)
		}
		s.reader, s.linkType = ng, ng.LinkType()
		return s, nil
	}

	pr, err := pcapgo.NewReader(br)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, err)
	}
	s.reader, s.linkType = pr, pr.LinkType()
	return s, nil
}

// LinkType returns the link type recorded in the file header.
func (s *FileSource) LinkType() layers.LinkType { return s.linkType }

// Next returns the next frame or io.EOF.
func (s *FileSource) Next(ctx context.Context) (models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return models.Frame{}, err
	}
	data, ci, err := s.reader.ReadPacketData()
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

// Close releases the file and completes the progress bar.
func (s *FileSource) Close() error {
	if s.bar != nil {
		s.bar.SetTotal(-1, true)
		s.bar = nil
	}
	return s.file.Close()
}
