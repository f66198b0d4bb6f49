package ax25ipd

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Stats counts frames through the gateway.  Counters may be read from any
// goroutine while the dispatcher is running.
type Stats struct {
	KISSIn         atomic.Uint64
	KISSToobig     atomic.Uint64
	KISSBadtype    atomic.Uint64
	KISSOut        atomic.Uint64
	KISSTooshort   atomic.Uint64
	KISSNotForMe   atomic.Uint64
	KISSIAmDest    atomic.Uint64
	KISSNoIPAddr   atomic.Uint64
	KISSBeaconOuts atomic.Uint64
	UDPIn          atomic.Uint64
	UDPOut         atomic.Uint64
	IPIn           atomic.Uint64
	IPOut          atomic.Uint64
	IPFailedCRC    atomic.Uint64
	IPTooshort     atomic.Uint64
	IPNotForMe     atomic.Uint64
	IPIAmDest      atomic.Uint64
}

// StatsSnapshot is a point in time copy of Stats.
type StatsSnapshot struct {
	KISSIn         uint64 `yaml:"kiss_in"`
	KISSToobig     uint64 `yaml:"kiss_toobig"`
	KISSBadtype    uint64 `yaml:"kiss_badtype"`
	KISSOut        uint64 `yaml:"kiss_out"`
	KISSTooshort   uint64 `yaml:"kiss_tooshort"`
	KISSNotForMe   uint64 `yaml:"kiss_not_for_me"`
	KISSIAmDest    uint64 `yaml:"kiss_i_am_dest"`
	KISSNoIPAddr   uint64 `yaml:"kiss_no_ip_addr"`
	KISSBeaconOuts uint64 `yaml:"kiss_beacon_outs"`
	UDPIn          uint64 `yaml:"udp_in"`
	UDPOut         uint64 `yaml:"udp_out"`
	IPIn           uint64 `yaml:"ip_in"`
	IPOut          uint64 `yaml:"ip_out"`
	IPFailedCRC    uint64 `yaml:"ip_failed_crc"`
	IPTooshort     uint64 `yaml:"ip_tooshort"`
	IPNotForMe     uint64 `yaml:"ip_not_for_me"`
	IPIAmDest      uint64 `yaml:"ip_i_am_dest"`
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		KISSIn:         s.KISSIn.Load(),
		KISSToobig:     s.KISSToobig.Load(),
		KISSBadtype:    s.KISSBadtype.Load(),
		KISSOut:        s.KISSOut.Load(),
		KISSTooshort:   s.KISSTooshort.Load(),
		KISSNotForMe:   s.KISSNotForMe.Load(),
		KISSIAmDest:    s.KISSIAmDest.Load(),
		KISSNoIPAddr:   s.KISSNoIPAddr.Load(),
		KISSBeaconOuts: s.KISSBeaconOuts.Load(),
		UDPIn:          s.UDPIn.Load(),
		UDPOut:         s.UDPOut.Load(),
		IPIn:           s.IPIn.Load(),
		IPOut:          s.IPOut.Load(),
		IPFailedCRC:    s.IPFailedCRC.Load(),
		IPTooshort:     s.IPTooshort.Load(),
		IPNotForMe:     s.IPNotForMe.Load(),
		IPIAmDest:      s.IPIAmDest.Load(),
	}
}

// WriteTo writes the snapshot as an aligned two column table.
func (ss StatsSnapshot) WriteTo(w io.Writer) (int64, error) {
	rows := []struct {
		name  string
		value uint64
	}{
		{"kiss_in", ss.KISSIn},
		{"kiss_toobig", ss.KISSToobig},
		{"kiss_badtype", ss.KISSBadtype},
		{"kiss_out", ss.KISSOut},
		{"kiss_tooshort", ss.KISSTooshort},
		{"kiss_not_for_me", ss.KISSNotForMe},
		{"kiss_i_am_dest", ss.KISSIAmDest},
		{"kiss_no_ip_addr", ss.KISSNoIPAddr},
		{"kiss_beacon_outs", ss.KISSBeaconOuts},
		{"udp_in", ss.UDPIn},
		{"udp_out", ss.UDPOut},
		{"ip_in", ss.IPIn},
		{"ip_out", ss.IPOut},
		{"ip_failed_crc", ss.IPFailedCRC},
		{"ip_tooshort", ss.IPTooshort},
		{"ip_not_for_me", ss.IPNotForMe},
		{"ip_i_am_dest", ss.IPIAmDest},
	}
	var total int64
	for _, r := range rows {
		n, err := fmt.Fprintf(w, "  %-18s %10d\n", r.name, r.value)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
