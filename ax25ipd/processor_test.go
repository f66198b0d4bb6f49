package ax25ipd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalix/go-ax25ipd/ax25"
	"github.com/katalix/go-ax25ipd/route"
)

type sentIP struct {
	frame []byte
	entry *route.Entry
}

type sentRadio struct {
	port  int
	frame []byte
}

type fakeSender struct {
	ip    []sentIP
	radio []sentRadio
	err   error
}

func (s *fakeSender) SendIP(frame []byte, e *route.Entry) error {
	s.ip = append(s.ip, sentIP{frame: append([]byte(nil), frame...), entry: e})
	return s.err
}

func (s *fakeSender) SendRadio(port int, frame []byte) error {
	s.radio = append(s.radio, sentRadio{port: port, frame: append([]byte(nil), frame...)})
	return s.err
}

func call(s string) ax25.Callsign {
	return ax25.MustParseCallsign(s)
}

// via builds a digipeater list; a trailing '*' marks a repeated slot.
func via(calls ...string) (d []ax25.Digi) {
	for _, c := range calls {
		repeated := c[len(c)-1] == '*'
		if repeated {
			c = c[:len(c)-1]
		}
		d = append(d, ax25.Digi{Call: call(c), Repeated: repeated})
	}
	return
}

func uiFrame(src, dest string, digis []ax25.Digi) []byte {
	f := ax25.Frame{
		Dest:    call(dest),
		Source:  call(src),
		Digis:   digis,
		Control: ax25.ControlUI,
		PID:     ax25.PIDNoLayer3,
		HasPID:  true,
		Info:    []byte("payload"),
		Command: true,
	}
	return f.Encode()
}

type processorTest struct {
	proc   *Processor
	out    *fakeSender
	stats  *Stats
	local  []sentRadio
	routes *route.Table
}

func newProcessorTest(mode Mode, dualPort bool) *processorTest {
	cfg := DefaultConfig()
	cfg.MyCall = call("GW-1")
	cfg.MyAlias = call("AXIP")
	cfg.Mode = mode
	cfg.Device = "/dev/ttyS0"
	if dualPort {
		cfg.DualPort = true
		cfg.MyCall2 = call("GW-2")
		cfg.MyAlias2 = call("AXIP2")
	}

	tbl := route.NewTable()
	tbl.Add(call("REMOTE"), [4]byte{192, 0, 2, 1}, 10093, 0)
	tbl.Add(call("B"), [4]byte{192, 0, 2, 2}, 0, 0)
	tbl.Add(call("BC1"), [4]byte{192, 0, 2, 11}, 10093, route.FlagBroadcast)
	tbl.Add(call("BC2"), [4]byte{192, 0, 2, 12}, 0, route.FlagBroadcast)
	tbl.AddBroadcast(call("QST"))

	pt := &processorTest{
		out:    &fakeSender{},
		stats:  &Stats{},
		routes: tbl,
	}
	pt.proc = newProcessor(&cfg, route.NewStore(tbl), pt.stats, pt.out, log.NewNopLogger())
	pt.proc.SetLocalHandler(func(port int, frame []byte) {
		pt.local = append(pt.local, sentRadio{port: port, frame: frame})
	})
	return pt
}

func (pt *processorTest) entry(s string) *route.Entry {
	e, _ := pt.routes.Lookup(call(s))
	return e
}

func TestFromKISSRouting(t *testing.T) {
	cases := []struct {
		name     string
		mode     Mode
		frame    []byte
		sendTo   []string
		local    int
		notForMe uint64
		noRoute  uint64
		tooShort uint64
		// digipeater slots expected to be repeated in the sent frame
		repeated []bool
	}{
		{
			name:   "tnc routed destination",
			mode:   ModeTNC,
			frame:  uiFrame("A", "REMOTE", nil),
			sendTo: []string{"REMOTE"},
		},
		{
			name:    "tnc unrouted destination",
			mode:    ModeTNC,
			frame:   uiFrame("A", "NOBODY", nil),
			noRoute: 1,
		},
		{
			name:     "tnc routes toward pending digipeater",
			mode:     ModeTNC,
			frame:    uiFrame("A", "NOBODY", via("B")),
			sendTo:   []string{"B"},
			repeated: []bool{false},
		},
		{
			name:     "tnc skips repeated digipeaters",
			mode:     ModeTNC,
			frame:    uiFrame("A", "REMOTE", via("X*", "Y*")),
			sendTo:   []string{"REMOTE"},
			repeated: []bool{true, true},
		},
		{
			name:  "destination is us",
			mode:  ModeDigi,
			frame: uiFrame("A", "GW-1", nil),
			local: 1,
		},
		{
			name:  "destination is our alias",
			mode:  ModeTNC,
			frame: uiFrame("A", "AXIP", nil),
			local: 1,
		},
		{
			name:     "digi repeats our slot and routes to next digipeater",
			mode:     ModeDigi,
			frame:    uiFrame("A", "NOBODY", via("GW-1", "REMOTE")),
			sendTo:   []string{"REMOTE"},
			repeated: []bool{true, false},
		},
		{
			name:     "digi repeats alias slot",
			mode:     ModeDigi,
			frame:    uiFrame("A", "NOBODY", via("X*", "AXIP", "REMOTE")),
			sendTo:   []string{"REMOTE"},
			repeated: []bool{true, true, false},
		},
		{
			name:     "digi as last digipeater routes to destination",
			mode:     ModeDigi,
			frame:    uiFrame("A", "B", via("GW-1")),
			sendTo:   []string{"B"},
			repeated: []bool{true},
		},
		{
			name:     "digi pending slot for someone else",
			mode:     ModeDigi,
			frame:    uiFrame("A", "REMOTE", via("OTHER", "GW-1")),
			notForMe: 1,
		},
		{
			name:     "digi direct frame to another station",
			mode:     ModeDigi,
			frame:    uiFrame("A", "REMOTE", nil),
			notForMe: 1,
		},
		{
			name:   "digi broadcast fans out",
			mode:   ModeDigi,
			frame:  uiFrame("A", "QST", nil),
			sendTo: []string{"BC1", "BC2"},
		},
		{
			name:    "digi repeated slot then unrouted destination",
			mode:    ModeDigi,
			frame:   uiFrame("A", "NOBODY", via("GW-1")),
			noRoute: 1,
		},
		{
			name:     "too short",
			mode:     ModeDigi,
			frame:    uiFrame("A", "B", nil)[:ax25.MinFrameLen-1],
			tooShort: 1,
		},
		{
			// No group carries the end of address flag.
			name:     "address field never ends",
			mode:     ModeDigi,
			frame:    bytes.Repeat([]byte{0x40}, 3*ax25.AddrLen),
			tooShort: 1,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pt := newProcessorTest(c.mode, false)
			require.NoError(t, pt.proc.FromKISS(0, c.frame))

			ss := pt.stats.Snapshot()
			assert.Equal(t, uint64(1), ss.KISSIn)
			assert.Equal(t, c.notForMe, ss.KISSNotForMe, "not for me")
			assert.Equal(t, c.noRoute, ss.KISSNoIPAddr, "no route")
			assert.Equal(t, c.tooShort, ss.KISSTooshort, "too short")
			assert.Equal(t, uint64(c.local), ss.KISSIAmDest, "i am dest")
			assert.Len(t, pt.local, c.local)

			require.Len(t, pt.out.ip, len(c.sendTo))
			for i, s := range c.sendTo {
				sent := pt.out.ip[i]
				assert.Same(t, pt.entry(s), sent.entry)
				assert.True(t, ax25.OkCRC(sent.frame), "sent frame must carry a valid FCS")

				f, err := ax25.DecodeFrame(sent.frame[:len(sent.frame)-ax25.FCSLen])
				require.NoError(t, err)
				assert.Equal(t, []byte("payload"), f.Info)
				if c.repeated != nil {
					require.Len(t, f.Digis, len(c.repeated))
					for j, r := range c.repeated {
						assert.Equal(t, r, f.Digis[j].Repeated, "digipeater %d", j)
					}
				}
			}
			assert.Empty(t, pt.out.radio)
		})
	}
}

func TestFromKISSBroadcastViaDefault(t *testing.T) {
	pt := newProcessorTest(ModeDigi, false)
	pt.routes.Add(call("GATE"), [4]byte{192, 0, 2, 99}, 10093, route.FlagDefault|route.FlagBroadcast)

	require.NoError(t, pt.proc.FromKISS(0, uiFrame("A", "QST", nil)))

	// The default route is also a broadcast target: one copy only.
	var got []string
	for _, s := range pt.out.ip {
		got = append(got, s.entry.Call.String())
	}
	assert.Equal(t, []string{"GATE", "BC1", "BC2"}, got)
}

func TestFromKISSDualPort(t *testing.T) {
	pt := newProcessorTest(ModeDigi, true)

	// Port 1 answers to the second callsign only.
	require.NoError(t, pt.proc.FromKISS(1, uiFrame("A", "NOBODY", via("GW-2", "REMOTE"))))
	require.Len(t, pt.out.ip, 1)
	assert.Same(t, pt.entry("REMOTE"), pt.out.ip[0].entry)

	require.NoError(t, pt.proc.FromKISS(1, uiFrame("A", "NOBODY", via("GW-1", "REMOTE"))))
	assert.Len(t, pt.out.ip, 1)
	assert.Equal(t, uint64(1), pt.stats.KISSNotForMe.Load())

	require.NoError(t, pt.proc.FromKISS(1, uiFrame("A", "AXIP2", nil)))
	require.Len(t, pt.local, 1)
	assert.Equal(t, 1, pt.local[0].port)
}

func TestFromKISSSendError(t *testing.T) {
	pt := newProcessorTest(ModeTNC, false)
	fatal := &IOError{Dir: DirWrite, Kind: ChannelUDP, Err: errors.New("boom")}
	pt.out.err = fatal

	err := pt.proc.FromKISS(0, uiFrame("A", "REMOTE", nil))
	assert.ErrorIs(t, err, fatal)
}

func TestFromIP(t *testing.T) {
	cases := []struct {
		name     string
		mode     Mode
		dualPort bool
		frame    []byte
		radio    []int
		local    int
		badCRC   uint64
		tooShort uint64
		notForMe uint64
		repeated []bool
	}{
		{
			name: "bad FCS",
			mode: ModeTNC,
			frame: func() []byte {
				b := ax25.AddCRC(uiFrame("A", "B", nil))
				b[len(b)-1] ^= 0xff
				return b
			}(),
			badCRC: 1,
		},
		{
			name:     "too short",
			mode:     ModeTNC,
			frame:    ax25.AddCRC(uiFrame("A", "B", nil)[:10]),
			tooShort: 1,
		},
		{
			name:  "tnc passes everything to the radio",
			mode:  ModeTNC,
			frame: ax25.AddCRC(uiFrame("A", "ANYONE", nil)),
			radio: []int{0},
		},
		{
			name:  "tnc passes frames for our call to the radio",
			mode:  ModeTNC,
			frame: ax25.AddCRC(uiFrame("A", "GW-1", nil)),
			radio: []int{0},
		},
		{
			name:     "tnc selects second port by callsign",
			mode:     ModeTNC,
			dualPort: true,
			frame:    ax25.AddCRC(uiFrame("A", "GW-2", nil)),
			radio:    []int{1},
		},
		{
			name:     "digi repeats our slot onto the radio",
			mode:     ModeDigi,
			frame:    ax25.AddCRC(uiFrame("A", "B", via("REMOTE*", "GW-1"))),
			radio:    []int{0},
			repeated: []bool{true, true},
		},
		{
			name:     "digi second port slot",
			mode:     ModeDigi,
			dualPort: true,
			frame:    ax25.AddCRC(uiFrame("A", "B", via("AXIP2", "C"))),
			radio:    []int{1},
			repeated: []bool{true, false},
		},
		{
			name:     "digi slot for someone else",
			mode:     ModeDigi,
			frame:    ax25.AddCRC(uiFrame("A", "B", via("OTHER"))),
			notForMe: 1,
		},
		{
			name:  "digi frame for us",
			mode:  ModeDigi,
			frame: ax25.AddCRC(uiFrame("A", "GW-1", nil)),
			local: 1,
		},
		{
			name:     "digi direct frame for another station",
			mode:     ModeDigi,
			frame:    ax25.AddCRC(uiFrame("A", "B", nil)),
			notForMe: 1,
		},
		{
			name:  "digi broadcast goes to the radio",
			mode:  ModeDigi,
			frame: ax25.AddCRC(uiFrame("A", "QST", nil)),
			radio: []int{0},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pt := newProcessorTest(c.mode, c.dualPort)
			require.NoError(t, pt.proc.FromIP(c.frame))

			ss := pt.stats.Snapshot()
			assert.Equal(t, c.badCRC, ss.IPFailedCRC, "failed crc")
			assert.Equal(t, c.tooShort, ss.IPTooshort, "too short")
			assert.Equal(t, c.notForMe, ss.IPNotForMe, "not for me")
			assert.Equal(t, uint64(c.local), ss.IPIAmDest, "i am dest")
			assert.Len(t, pt.local, c.local)
			assert.Empty(t, pt.out.ip)

			require.Len(t, pt.out.radio, len(c.radio))
			for i, port := range c.radio {
				sent := pt.out.radio[i]
				assert.Equal(t, port, sent.port)
				// The FCS is not passed to the radio.
				assert.Len(t, sent.frame, len(c.frame)-ax25.FCSLen)
				f, err := ax25.DecodeFrame(sent.frame)
				require.NoError(t, err)
				for j, r := range c.repeated {
					assert.Equal(t, r, f.Digis[j].Repeated, "digipeater %d", j)
				}
			}
		})
	}
}

func TestBeacon(t *testing.T) {
	pt := newProcessorTest(ModeDigi, false)
	pt.proc.cfg.Beacon.Text = "ax25ipd gateway"

	require.NoError(t, pt.proc.Beacon())
	require.Len(t, pt.out.radio, 1)
	assert.Equal(t, 0, pt.out.radio[0].port)
	assert.Equal(t, uint64(1), pt.stats.KISSBeaconOuts.Load())

	f, err := ax25.DecodeFrame(pt.out.radio[0].frame)
	require.NoError(t, err)
	assert.Equal(t, call("ID"), f.Dest)
	assert.Equal(t, call("GW-1"), f.Source)
	assert.Equal(t, byte(ax25.ControlUI), f.Control)
	assert.Equal(t, byte(ax25.PIDNoLayer3), f.PID)
	assert.Equal(t, []byte("ax25ipd gateway"), f.Info)
}

func TestDumpFrameIsLazy(t *testing.T) {
	frame := uiFrame("A", "B", nil)

	var buf bytes.Buffer
	logger := level.NewFilter(log.NewLogfmtLogger(&buf), level.AllowInfo())
	level.Debug(logger).Log("frame", dumpFrame(frame))
	assert.Empty(t, buf.String())

	logger = level.NewFilter(log.NewLogfmtLogger(&buf), level.AllowDebug())
	level.Debug(logger).Log("frame", dumpFrame(frame))
	assert.Contains(t, buf.String(), ax25.Dump(frame))
}

func TestSetLocalHandler(t *testing.T) {
	pt := newProcessorTest(ModeDigi, false)
	pt.proc.SetLocalHandler(nil)

	// Counted even with no handler installed.
	require.NoError(t, pt.proc.FromKISS(0, uiFrame("A", "GW-1", nil)))
	assert.Equal(t, uint64(1), pt.stats.KISSIAmDest.Load())
	assert.Empty(t, pt.local)
}
