package tcp

import (
	"math/rand"
	"testing"

	"github.com/soypat/lnlayer"
)

func TestFrame(t *testing.T) {
	var buf [60]byte
	tfrm, err := NewFrame(buf[:])
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))
	var vld lnlayer.Validator
	for i := 0; i < 100; i++ {
		wantSrc := uint16(rng.Intn(0xffff)) + 1
		wantDst := uint16(rng.Intn(0xffff)) + 1
		wantSeq := Value(rng.Uint32())
		wantAck := Value(rng.Uint32())
		wantOff := uint8(5 + rng.Intn(11))
		wantFlags := Flags(rng.Intn(256))
		wantRsv := uint8(rng.Intn(16))
		wantWnd := uint16(rng.Uint32())
		wantCRC := uint16(rng.Uint32())
		wantUrg := uint16(rng.Uint32())
		tfrm.SetSourcePort(wantSrc)
		tfrm.SetDestinationPort(wantDst)
		tfrm.SetSeq(wantSeq)
		tfrm.SetAck(wantAck)
		tfrm.SetReserved(wantRsv)
		tfrm.SetOffsetAndFlags(wantOff, wantFlags)
		tfrm.SetWindowSize(wantWnd)
		tfrm.SetCRC(wantCRC)
		tfrm.SetUrgentPtr(wantUrg)
		tfrm.ValidateExceptCRC(&vld)
		if err := vld.ErrPop(); err != nil {
			t.Fatal(err)
		}
		if got := tfrm.SourcePort(); got != wantSrc {
			t.Errorf("src port: want %d, got %d", wantSrc, got)
		}
		if got := tfrm.DestinationPort(); got != wantDst {
			t.Errorf("dst port: want %d, got %d", wantDst, got)
		}
		if got := tfrm.Seq(); got != wantSeq {
			t.Errorf("seq: want %d, got %d", wantSeq, got)
		}
		if got := tfrm.Ack(); got != wantAck {
			t.Errorf("ack: want %d, got %d", wantAck, got)
		}
		if off, flags := tfrm.OffsetAndFlags(); off != wantOff || flags != wantFlags {
			t.Errorf("offset,flags: want %d,%s got %d,%s", wantOff, wantFlags, off, flags)
		}
		if got := tfrm.Reserved(); got != wantRsv {
			t.Errorf("reserved bits clobbered by offset/flags: want %d, got %d", wantRsv, got)
		}
		if got := tfrm.WindowSize(); got != wantWnd {
			t.Errorf("window: want %d, got %d", wantWnd, got)
		}
		if got := tfrm.CRC(); got != wantCRC {
			t.Errorf("crc: want %d, got %d", wantCRC, got)
		}
		if got := tfrm.UrgentPtr(); got != wantUrg {
			t.Errorf("urgent ptr: want %d, got %d", wantUrg, got)
		}
		if len(tfrm.Options()) != int(wantOff)*4-sizeHeaderTCP {
			t.Errorf("options length: want %d, got %d", int(wantOff)*4-sizeHeaderTCP, len(tfrm.Options()))
		}
	}
}

func TestFrameValidateSize(t *testing.T) {
	var buf [24]byte
	tfrm, _ := NewFrame(buf[:])
	tfrm.SetSourcePort(1)
	tfrm.SetDestinationPort(1)
	var vld lnlayer.Validator
	tfrm.SetOffsetAndFlags(4, 0)
	tfrm.ValidateSize(&vld)
	if !vld.HasError() {
		t.Error("expected error for offset below 5")
	}
	vld.ResetErr()
	tfrm.SetOffsetAndFlags(7, 0)
	tfrm.ValidateSize(&vld)
	if !vld.HasError() {
		t.Error("expected error for header exceeding buffer")
	}
	vld.ResetErr()
	tfrm.SetOffsetAndFlags(6, 0)
	tfrm.ValidateSize(&vld)
	if err := vld.ErrPop(); err != nil {
		t.Error(err)
	}
	if _, err := NewFrame(buf[:19]); err == nil {
		t.Error("expected error for short frame")
	}
}

func TestFlagsString(t *testing.T) {
	tests := []struct {
		flags Flags
		want  string
	}{
		{0, "[]"},
		{FlagSYN, "[SYN]"},
		{FlagSYN | FlagACK, "[SYN,ACK]"},
		{FlagFIN | FlagPSH | FlagACK, "[FIN,PSH,ACK]"},
		{FlagECE | FlagCWR, "[ECE,CWR]"},
	}
	for _, test := range tests {
		if got := test.flags.String(); got != test.want {
			t.Errorf("want %q, got %q", test.want, got)
		}
		parsed, ok := ParseFlags(test.want)
		if !ok || parsed != test.flags {
			t.Errorf("ParseFlags(%q): want %d, got %d (ok=%v)", test.want, test.flags, parsed, ok)
		}
	}
	if _, ok := ParseFlags("SYN,NS"); ok {
		t.Error("expected unknown flag to fail parsing")
	}
}
