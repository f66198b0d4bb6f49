package main

import (
	"fmt"
	"io"
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/lestrrat-go/strftime"
	"gopkg.in/yaml.v3"

	"github.com/katalix/go-ax25ipd/ax25ipd"
	"github.com/katalix/go-ax25ipd/config"
	"github.com/katalix/go-ax25ipd/route"
)

const reportTimeFormat = "%Y-%m-%d %H:%M:%S %Z"

type reportStation struct {
	MyCall     string `yaml:"mycall"`
	MyAlias    string `yaml:"myalias,omitempty"`
	MyCall2    string `yaml:"mycall2,omitempty"`
	MyAlias2   string `yaml:"myalias2,omitempty"`
	Mode       string `yaml:"mode"`
	DualPort   bool   `yaml:"dual_port"`
	Device     string `yaml:"device"`
	Radio      string `yaml:"radio"`
	Speed      int    `yaml:"speed,omitempty"`
	PtySymlink string `yaml:"pty_symlink,omitempty"`
	Sockets    string `yaml:"socket"`
	UDPPort    uint16 `yaml:"udp_port,omitempty"`
}

type reportBeacon struct {
	Interval string `yaml:"interval"`
	Mode     string `yaml:"mode"`
	Text     string `yaml:"text,omitempty"`
}

type reportRoute struct {
	Name  string `yaml:"name"`
	Call  string `yaml:"call"`
	Addr  string `yaml:"addr"`
	Proto string `yaml:"proto"`
	Flags string `yaml:"flags,omitempty"`
}

type report struct {
	Time       string                `yaml:"time"`
	Version    string                `yaml:"version"`
	Station    reportStation         `yaml:"station"`
	Beacon     reportBeacon          `yaml:"beacon"`
	KISS       map[string]byte       `yaml:"kiss,omitempty"`
	Broadcasts []string              `yaml:"broadcast,omitempty"`
	Routes     []reportRoute         `yaml:"routes"`
	Stats      ax25ipd.StatsSnapshot `yaml:"stats"`
}

func newReport(now time.Time, cfg *config.Config, stats *ax25ipd.Stats) (*report, error) {
	ts, err := strftime.Format(reportTimeFormat, now)
	if err != nil {
		return nil, err
	}
	r := &report{
		Time:    ts,
		Version: ax25ipd.Version,
		Stats:   stats.Snapshot(),
	}
	if cfg == nil {
		return r, nil
	}

	st := &cfg.Station
	r.Station = reportStation{
		MyCall:     st.MyCall.String(),
		MyAlias:    st.MyAlias.String(),
		MyCall2:    st.MyCall2.String(),
		MyAlias2:   st.MyAlias2.String(),
		Mode:       st.Mode.String(),
		DualPort:   st.DualPort,
		Device:     st.Device,
		Radio:      st.Radio().String(),
		PtySymlink: st.PtySymlink,
		Sockets:    st.Sockets.String(),
	}
	if st.Radio() == ax25ipd.RadioSerial {
		r.Station.Speed = st.Speed
	}
	if st.Sockets&ax25ipd.SocketUDP != 0 {
		r.Station.UDPPort = st.UDPPort
	}
	r.Beacon = reportBeacon{
		Interval: st.Beacon.Interval.String(),
		Mode:     st.Beacon.Mode.String(),
		Text:     st.Beacon.Text,
	}
	for _, c := range st.KISS.Commands() {
		if r.KISS == nil {
			r.KISS = make(map[string]byte)
		}
		v, _ := st.KISS.Get(c)
		r.KISS[c.String()] = v
	}
	for _, b := range cfg.Broadcasts {
		r.Broadcasts = append(r.Broadcasts, b.String())
	}
	for _, nr := range cfg.Routes {
		r.Routes = append(r.Routes, newReportRoute(nr.Name, &nr.Entry))
	}
	return r, nil
}

func newReportRoute(name string, e *route.Entry) reportRoute {
	proto := "ip"
	if e.IsUDP() {
		proto = fmt.Sprintf("udp:%d", e.Port)
	}
	return reportRoute{
		Name:  name,
		Call:  e.Call.String(),
		Addr:  e.IP().String(),
		Proto: proto,
		Flags: e.Flags.String(),
	}
}

func writeReport(w io.Writer, r *report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// writeReport dumps configuration, routes and counters.
func (app *application) writeReport(w io.Writer) {
	app.mu.Lock()
	cfg, logger := app.cfg, app.logger
	app.mu.Unlock()

	r, err := newReport(time.Now(), cfg, app.stats)
	if err == nil {
		err = writeReport(w, r)
	}
	if err != nil {
		level.Error(logger).Log(
			"message", "failed to write report",
			"error", err)
	}
}

// writeStats dumps the counters as a table.
func (app *application) writeStats(w io.Writer) {
	ts, _ := strftime.Format(reportTimeFormat, time.Now())
	fmt.Fprintf(w, "ax25ipd %s statistics at %s\n", ax25ipd.Version, ts)
	app.stats.Snapshot().WriteTo(w)
}
