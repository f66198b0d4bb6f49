package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/katalix/go-ax25ipd/ax25ipd"
	"github.com/katalix/go-ax25ipd/config"
	"github.com/katalix/go-ax25ipd/route"
)

const testConfig = `mycall = "VK2XXX-1"
myalias = "AXIP"
device = "/dev/ttyS0"
socket = ["udp"]
broadcast = ["QST"]

[beacon]
interval = 600
text = "hello"

[kiss]
txdelay = 30

[route.r1]
call = "VK2YYY"
addr = "192.0.2.1"
udp_port = 10093
flags = ["broadcast"]
`

func TestNewLogger(t *testing.T) {
	cases := []struct {
		lvl   int
		debug bool
		info  bool
		warn  bool
	}{
		{lvl: 0},
		{lvl: 1, warn: true},
		{lvl: 2, warn: true, info: true},
		{lvl: 3, warn: true, info: true, debug: true},
		{lvl: 9, warn: true, info: true, debug: true},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		logger := newLogger(&buf, c.lvl)
		level.Debug(logger).Log("message", "d")
		level.Info(logger).Log("message", "i")
		level.Warn(logger).Log("message", "w")
		level.Error(logger).Log("message", "e")

		out := buf.String()
		if strings.Contains(out, "message=d") != c.debug ||
			strings.Contains(out, "message=i") != c.info ||
			strings.Contains(out, "message=w") != c.warn ||
			!strings.Contains(out, "message=e") {
			t.Fatalf("level %d: unexpected output %q", c.lvl, out)
		}
	}
}

func writeTestConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "ax25ipd.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeTestConfig(t, testConfig)

	app := &application{opts: options{configPath: path, logLevel: -1}}
	cfg, err := app.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS0", cfg.Station.Device)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)

	app.opts = options{configPath: path, device: "/dev/ptmx", ptySymlink: "/tmp/axpty", logLevel: 3}
	cfg, err = app.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/dev/ptmx", cfg.Station.Device)
	assert.Equal(t, "/tmp/axpty", cfg.Station.PtySymlink)
	assert.Equal(t, 3, cfg.LogLevel)

	// A symlink only makes sense for a pseudo terminal.
	app.opts = options{configPath: path, ptySymlink: "/tmp/axpty", logLevel: -1}
	_, err = app.loadConfig()
	assert.Error(t, err)

	app.opts = options{configPath: filepath.Join(t.TempDir(), "missing.toml"), logLevel: -1}
	_, err = app.loadConfig()
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	cfg, err := config.LoadString(testConfig)
	require.NoError(t, err)

	stats := &ax25ipd.Stats{}
	stats.KISSIn.Add(3)
	stats.UDPOut.Add(2)

	now := time.Date(2024, 5, 4, 12, 30, 0, 0, time.UTC)
	r, err := newReport(now, cfg, stats)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, r))

	var got map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "2024-05-04 12:30:00 UTC", got["time"])

	station := got["station"].(map[string]interface{})
	assert.Equal(t, "VK2XXX-1", station["mycall"])
	assert.Equal(t, "AXIP", station["myalias"])
	assert.Equal(t, "digi", station["mode"])
	assert.Equal(t, "serial", station["radio"])
	assert.Equal(t, 10093, station["udp_port"])

	assert.Equal(t, map[string]interface{}{"txdelay": 30}, got["kiss"])
	assert.Equal(t, []interface{}{"QST"}, got["broadcast"])

	routes := got["routes"].([]interface{})
	require.Len(t, routes, 1)
	assert.Equal(t, map[string]interface{}{
		"name":  "r1",
		"call":  "VK2YYY",
		"addr":  "192.0.2.1",
		"proto": "udp:10093",
		"flags": "broadcast",
	}, routes[0])

	counters := got["stats"].(map[string]interface{})
	assert.Equal(t, 3, counters["kiss_in"])
	assert.Equal(t, 2, counters["udp_out"])
	assert.Equal(t, 0, counters["ip_failed_crc"])
}

func TestReportWithoutConfig(t *testing.T) {
	r, err := newReport(time.Now(), nil, &ax25ipd.Stats{})
	require.NoError(t, err)
	assert.Equal(t, ax25ipd.Version, r.Version)
	assert.Empty(t, r.Routes)
}

func TestNewReportRoute(t *testing.T) {
	e := &route.Entry{Addr: [4]byte{10, 1, 2, 3}, Flags: route.FlagDefault}
	rr := newReportRoute("gw", e)
	assert.Equal(t, "ip", rr.Proto)
	assert.Equal(t, "10.1.2.3", rr.Addr)
	assert.Equal(t, "default", rr.Flags)
}

func TestWriteStats(t *testing.T) {
	app := &application{stats: &ax25ipd.Stats{}}
	app.stats.KISSBeaconOuts.Add(7)

	var buf bytes.Buffer
	app.writeStats(&buf)
	out := buf.String()
	assert.Contains(t, out, "statistics at")
	assert.Regexp(t, `kiss_beacon_outs\s+7\n`, out)
}
