package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"
	"github.com/soypat/lnlayer"
	"github.com/soypat/lnlayer/internal"
	"github.com/soypat/lnlayer/ipv4"
	"github.com/soypat/lnlayer/tcp"
	"github.com/spf13/cobra"
)

func newPcapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pcap FILE",
		Short: "Verify TCP checksums of every IPv4 packet in a capture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			stats, err := checkCapture(c.OutOrStdout(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "packets=%d tcp=%d identical=%d relayout=%d badcrc=%d malformed=%d\n",
				stats.Packets, stats.TCP, stats.Identical, stats.Relayout, stats.BadCRC, stats.Malformed)
			if stats.BadCRC > 0 {
				return fmt.Errorf("%d segments with bad checksum", stats.BadCRC)
			}
			return nil
		},
	}
}

type captureStats struct {
	Packets   int
	TCP       int
	Identical int // Re-encoded segment equals the captured bytes.
	Relayout  int // Option layout differs after re-encoding, i.e: NOPs between options.
	BadCRC    int
	Malformed int
}

// checkCapture reads a pcap stream from r and checks every IPv4 TCP segment in it.
// Segments with a bad checksum or that fail to decode are reported to w.
func checkCapture(w io.Writer, r io.Reader) (stats captureStats, err error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return stats, fmt.Errorf("reading pcap header: %w", err)
	}
	for {
		data, _, err := pr.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return stats, nil
		} else if err != nil {
			return stats, fmt.Errorf("reading packet %d: %w", stats.Packets+1, err)
		}
		stats.Packets++
		pkt := gopacket.NewPacket(data, pr.LinkType(), gopacket.NoCopy)
		ipLayer := pkt.Layer(layers.LayerTypeIPv4)
		if ipLayer == nil {
			logger.Log(context.Background(), internal.LevelTrace, "skip", slog.Int("pkt", stats.Packets))
			continue
		}
		ipBytes := make([]byte, 0, len(ipLayer.LayerContents())+len(ipLayer.LayerPayload()))
		ipBytes = append(ipBytes, ipLayer.LayerContents()...)
		ipBytes = append(ipBytes, ipLayer.LayerPayload()...)
		res, err := checkIPv4TCP(ipBytes)
		switch {
		case err != nil:
			stats.Malformed++
			fmt.Fprintf(w, "packet %d: %v\n", stats.Packets, err)
			continue
		case res.seg == nil:
			continue
		}
		stats.TCP++
		logger.Log(context.Background(), internal.LevelTrace, "segment",
			slog.Int("pkt", stats.Packets),
			internal.SlogAddr4("src", &res.src),
			internal.SlogAddr4("dst", &res.dst),
			slog.String("seg", res.seg.String()),
		)
		if res.captured != res.want {
			stats.BadCRC++
			fmt.Fprintf(w, "packet %d: %s bad checksum %#04x, want %#04x\n", stats.Packets, res.seg, res.captured, res.want)
		}
		if res.identical {
			stats.Identical++
		} else {
			stats.Relayout++
		}
	}
}

type segmentCheck struct {
	seg       *tcp.Segment
	src, dst  [4]byte
	captured  uint16
	want      uint16
	identical bool
}

// checkIPv4TCP decodes an IPv4 packet, computes the checksum its TCP segment
// should carry and re-encodes the segment with the checksum recomputed.
// A nil segment is returned for non-TCP packets.
func checkIPv4TCP(ipBytes []byte) (res segmentCheck, err error) {
	pkt, err := ipv4.Decode(ipBytes)
	if err != nil {
		return res, err
	}
	seg, ok := pkt.Inner().(*tcp.Segment)
	if !ok {
		return res, nil
	}
	res.seg = seg
	res.src, res.dst = pkt.PseudoHeaderAddrs()
	res.captured = seg.Checksum()

	// Checksum over the captured bytes with the checksum field zeroed.
	hl := pkt.HeaderLength()
	captured := bytes.Clone(ipBytes[hl:pkt.TotalLength()])
	captured[16], captured[17] = 0, 0
	var crc lnlayer.CRC791
	crc.AddPseudoHeader(res.src, res.dst, lnlayer.IPProtoTCP, uint16(len(captured)))
	res.want = crc.PayloadSum16(captured)

	seg.ClearChecksum()
	encoded, err := lnlayer.Marshal(pkt)
	if err != nil {
		return res, fmt.Errorf("re-encoding: %w", err)
	}
	reencoded := encoded[hl:]
	res.identical = seg.Checksum() == res.want && bytes.Equal(reencoded[:16], captured[:16]) && bytes.Equal(reencoded[18:], captured[18:])
	return res, nil
}
