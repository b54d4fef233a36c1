package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/netip"
	"strconv"
	"strings"

	"github.com/soypat/lnlayer"
	"github.com/soypat/lnlayer/internal"
	"github.com/soypat/lnlayer/ipv4"
	"github.com/soypat/lnlayer/tcp"
	"github.com/spf13/cobra"
)

// buildCmd is the command line arguments of the build subcommand.
type buildCmd struct {
	SrcPort, DstPort uint16
	Seq, Ack         uint32
	Flags            string
	Window           uint16
	MSS              uint16
	WindowScale      int
	SACKPermitted    bool
	Timestamps       string
	Payload          string
	SrcIP, DstIP     string
}

func newBuildCmd() *cobra.Command {
	var b buildCmd
	c := &cobra.Command{
		Use:   "build",
		Short: "Build a TCP segment and print it as hex",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			l, err := b.layers()
			if err != nil {
				return err
			}
			buf, err := lnlayer.Marshal(l)
			if err != nil {
				return fmt.Errorf("encoding: %w", err)
			}
			fmt.Fprintln(c.OutOrStdout(), hex.EncodeToString(buf))
			return nil
		},
	}
	f := c.Flags()
	f.Uint16Var(&b.SrcPort, "src-port", 0, "Source port")
	f.Uint16Var(&b.DstPort, "dst-port", 0, "Destination port")
	f.Uint32Var(&b.Seq, "seq", 0, "Sequence number")
	f.Uint32Var(&b.Ack, "ack", 0, "Acknowledgment number")
	f.StringVar(&b.Flags, "flags", "", "Comma separated flags, i.e: SYN,ACK")
	f.Uint16Var(&b.Window, "window", tcp.DefaultWindow, "Window size")
	f.Uint16Var(&b.MSS, "mss", 0, "Add a maximum segment size option")
	f.IntVar(&b.WindowScale, "wscale", -1, "Add a window scale option")
	f.BoolVar(&b.SACKPermitted, "sack-perm", false, "Add a SACK permitted option")
	f.StringVar(&b.Timestamps, "ts", "", "Add a timestamps option as VAL:ECHO")
	f.StringVar(&b.Payload, "payload", "", "Payload string")
	f.StringVar(&b.SrcIP, "src-ip", "", "IPv4 source address, wraps the segment in an IPv4 packet")
	f.StringVar(&b.DstIP, "dst-ip", "", "IPv4 destination address, wraps the segment in an IPv4 packet")
	return c
}

// layers returns the outermost layer described by the flags.
func (b *buildCmd) layers() (lnlayer.Layer, error) {
	seg := tcp.NewSegment(b.SrcPort, b.DstPort)
	seg.SetSeq(tcp.Value(b.Seq))
	seg.SetAck(tcp.Value(b.Ack))
	seg.SetWindowSize(b.Window)
	if b.Flags != "" {
		flags, ok := tcp.ParseFlags(b.Flags)
		if !ok {
			return nil, fmt.Errorf("invalid flags %q", b.Flags)
		}
		seg.SetFlags(flags)
	}
	opts := seg.Options()
	if b.MSS != 0 {
		opts.AddMSS(b.MSS)
	}
	if b.WindowScale >= 0 {
		if b.WindowScale > 14 {
			return nil, fmt.Errorf("window scale %d exceeds 14", b.WindowScale)
		}
		opts.AddWindowScale(uint8(b.WindowScale))
	}
	if b.SACKPermitted {
		opts.AddSACKPermitted()
	}
	if b.Timestamps != "" {
		val, echo, err := parseTimestamps(b.Timestamps)
		if err != nil {
			return nil, err
		}
		opts.AddTimestamps(val, echo)
	}
	seg.SetPayload([]byte(b.Payload))
	if b.SrcIP == "" && b.DstIP == "" {
		logger.Debug("build", slog.String("seg", seg.String()))
		return seg, nil
	}
	src, err := parseAddr4(b.SrcIP)
	if err != nil {
		return nil, err
	}
	dst, err := parseAddr4(b.DstIP)
	if err != nil {
		return nil, err
	}
	pkt := ipv4.NewPacket(src, dst)
	pkt.SetInner(seg)
	logger.Debug("build",
		internal.SlogAddrPort4("src", src, b.SrcPort),
		internal.SlogAddrPort4("dst", dst, b.DstPort),
		slog.String("seg", seg.String()),
	)
	return pkt, nil
}

func parseTimestamps(s string) (val, echo uint32, err error) {
	vs, es, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("timestamps %q not in VAL:ECHO form", s)
	}
	v, err := strconv.ParseUint(vs, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("timestamp value: %w", err)
	}
	e, err := strconv.ParseUint(es, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("timestamp echo reply: %w", err)
	}
	return uint32(v), uint32(e), nil
}

func parseAddr4(s string) ([4]byte, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return [4]byte{}, fmt.Errorf("both --src-ip and --dst-ip are required: %w", err)
	} else if !addr.Is4() {
		return [4]byte{}, fmt.Errorf("%s is not an IPv4 address", addr)
	}
	return addr.As4(), nil
}
