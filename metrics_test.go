package uhf

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExchangeMetrics(t *testing.T) {
	ok := exchanges.WithLabelValues("set_power", "ok")
	frame := exchanges.WithLabelValues("set_power", "frame")
	okBefore, frameBefore := testutil.ToFloat64(ok), testutil.ToFloat64(frame)

	ft := newFakeTransport()
	ft.push([]byte{0x05, 0xFF, 0x2F, 0x00, 0x7E, 0x0B})
	ft.push([]byte{0x05, 0xFF, 0x2F, 0x00, 0x7E, 0x0C})
	h := NewReaderHandler(ft)
	if _, err := h.SetPower(30); err != nil {
		t.Fatalf("SetPower failed: %v", err)
	}
	if _, err := h.SetPower(30); err == nil {
		t.Fatal("corrupted reply accepted")
	}

	if got := testutil.ToFloat64(ok) - okBefore; got != 1 {
		t.Errorf("ok exchanges advanced by %v, want 1", got)
	}
	if got := testutil.ToFloat64(frame) - frameBefore; got != 1 {
		t.Errorf("frame errors advanced by %v, want 1", got)
	}
}

func TestOpcodeLabel(t *testing.T) {
	testCases := map[byte]string{
		CmdInventory:      "inventory",
		CmdReadMemory:     "read_memory",
		CmdSetReaderPower: "set_power",
		CmdGetWorkMode:    "get_work_mode",
		0x99:              "other",
	}
	for opcode, want := range testCases {
		if got := opcodeLabel(opcode); got != want {
			t.Errorf("opcodeLabel(0x%02X) = %q, want %q", opcode, got, want)
		}
	}
}

func TestRegisterMetricsIsIdempotent(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()
}
