package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// localProbeTarget is only used to pick the outbound interface. UDP connect
// sends nothing on the wire.
const localProbeTarget = "8.8.8.8:80"

// maxEchoBody caps the IP-echo response; anything longer is not an address.
const maxEchoBody = 256

// Addresses holds the network identity shown in a report. Empty means absent.
type Addresses struct {
	Local  string
	Global string
}

// Prober resolves the local and global address of the host. Lookups never
// fail; errors are logged and the address is left empty.
type Prober struct {
	log     logr.Logger
	client  *http.Client
	echoURL string
}

func newProber(log logr.Logger, echoURL string, timeout time.Duration) *Prober {
	return &Prober{
		log:     log,
		client:  &http.Client{Timeout: timeout},
		echoURL: echoURL,
	}
}

func (p *Prober) Addresses(ctx context.Context) Addresses {
	return Addresses{
		Local:  p.localAddress(),
		Global: p.globalAddress(ctx),
	}
}

func (p *Prober) localAddress() string {
	conn, err := net.Dial("udp", localProbeTarget)
	if err != nil {
		p.log.V(1).Info("local address unavailable", "err", &ProbeError{Probe: "local", Err: err})
		return ""
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return ""
	}
	return addr.IP.String()
}

func (p *Prober) globalAddress(ctx context.Context) string {
	ip, err := p.fetchGlobal(ctx)
	if err != nil {
		p.log.V(1).Info("global address unavailable", "err", &ProbeError{Probe: "global", Err: err})
		return ""
	}
	return ip
}

func (p *Prober) fetchGlobal(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.echoURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned %d", p.echoURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEchoBody))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}
