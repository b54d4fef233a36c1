package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/soypat/lnlayer"
	"github.com/soypat/lnlayer/ipv4"
	"github.com/soypat/lnlayer/tcp"
	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	var withIP, skipObsolete bool
	c := &cobra.Command{
		Use:   "decode HEX",
		Short: "Decode a hex encoded TCP segment or IPv4 packet",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			buf, err := parseHex(args[0])
			if err != nil {
				return err
			}
			segBytes := buf
			var seg *tcp.Segment
			if withIP {
				pkt, err := ipv4.Decode(buf)
				if err != nil {
					return fmt.Errorf("decoding ipv4: %w", err)
				}
				fmt.Fprintln(c.OutOrStdout(), pkt.String())
				var ok bool
				seg, ok = pkt.Inner().(*tcp.Segment)
				if !ok {
					return fmt.Errorf("packet protocol %s is not TCP", pkt.Protocol())
				}
				ifrm, _ := ipv4.NewFrame(buf)
				segBytes = ifrm.Payload()
			} else {
				seg, err = tcp.Decode(buf)
				if err != nil {
					return fmt.Errorf("decoding tcp: %w", err)
				}
			}
			tfrm, err := tcp.NewFrame(segBytes)
			if err != nil {
				return err
			}
			codec := tcp.OptionCodec{Flags: tcp.OptFlagSkipSizeValidation}
			if skipObsolete {
				codec.Flags |= tcp.OptFlagSkipObsolete
			}
			return printSegment(c.OutOrStdout(), seg, tfrm, codec)
		},
	}
	c.Flags().BoolVar(&withIP, "ip", false, "Input starts with an IPv4 header")
	c.Flags().BoolVar(&skipObsolete, "skip-obsolete", false, "Do not list obsolete options")
	return c
}

// parseHex decodes s ignoring whitespace, colons and an optional 0x prefix.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', ':':
			return -1
		}
		return r
	}, s)
	buf, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return buf, nil
}

// printSegment writes the decoded fields of seg to w. Options are listed by
// walking the wire option region of tfrm with codec.
func printSegment(w io.Writer, seg *tcp.Segment, tfrm tcp.Frame, codec tcp.OptionCodec) error {
	fmt.Fprintf(w, "src port:    %d\n", seg.SourcePort())
	fmt.Fprintf(w, "dst port:    %d\n", seg.DestinationPort())
	fmt.Fprintf(w, "seq:         %d\n", seg.Seq())
	fmt.Fprintf(w, "ack:         %d\n", seg.Ack())
	fmt.Fprintf(w, "data offset: %d (%d bytes)\n", seg.DataOffset(), int(seg.DataOffset())*4)
	fmt.Fprintf(w, "reserved:    %d\n", seg.Reserved())
	fmt.Fprintf(w, "flags:       %s\n", seg.Flags())
	fmt.Fprintf(w, "window:      %d\n", seg.WindowSize())
	fmt.Fprintf(w, "checksum:    %#04x\n", seg.Checksum())
	fmt.Fprintf(w, "urgent ptr:  %d\n", seg.UrgentPtr())
	var vld lnlayer.Validator
	tfrm.ValidateExceptCRC(&vld)
	if err := vld.ErrPop(); err != nil {
		fmt.Fprintf(w, "warning:     %v\n", err)
	}
	fmt.Fprintf(w, "options:     %d\n", seg.Options().Len())
	err := codec.ForEachOption(tfrm.Options(), func(kind tcp.OptionKind, value []byte) error {
		_, err := fmt.Fprintf(w, "  %-20s len=%-3d %x\n", kind, len(value), value)
		return err
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "payload:     %d bytes\n", len(tfrm.Payload()))
	return err
}
