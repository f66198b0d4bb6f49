package main

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

const dnssdServiceType = "_axudp._udp"

// announce advertises the AXUDP port over mDNS until ctx is cancelled.
func announce(ctx context.Context, name string, port int, logger log.Logger) error {
	cfg := dnssd.Config{
		Name: name,
		Type: dnssdServiceType,
		Port: port,
	}

	sv, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to create service: %v", err)
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("failed to create responder: %v", err)
	}

	if _, err := rp.Add(sv); err != nil {
		return fmt.Errorf("failed to add service: %v", err)
	}

	level.Info(logger).Log(
		"message", "announcing service",
		"name", name,
		"type", dnssdServiceType,
		"port", port)

	go func() {
		err := rp.Respond(ctx)
		if err != nil && ctx.Err() == nil {
			level.Error(logger).Log(
				"message", "DNS-SD responder failed",
				"error", err)
		}
	}()
	return nil
}
