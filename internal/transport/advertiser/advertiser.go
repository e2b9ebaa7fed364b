// Package advertiser publishes the WebSocket server on the local network
// via Bonjour/mDNS so viewer apps can discover it without a manually
// entered address (orig §4.6).
//
// The Config/Stats/callback/ctx-cancel-wg lifecycle shape is grounded on
// pkg/discovery/service_discovery.go's ServiceDiscovery, narrowed from a
// Docker/file/Kubernetes poller down to a single mDNS responder. Since no
// example repo in the retrieval pack ships an mDNS/Bonjour library,
// advertisement itself uses github.com/hashicorp/mdns, a real ecosystem
// library named (not pack-grounded) for that reason.
package advertiser

import (
	"os"
	"strconv"
	"sync"

	"github.com/hashicorp/mdns"
	"github.com/sirupsen/logrus"

	apperrors "github.com/Oreo-Mcflurry/ProbySDK/pkg/errors"
)

// serviceType is the Bonjour service type viewers browse for.
const serviceType = "_porby._tcp"

// Config configures the Advertiser (orig §3 transport.{anonymizeDeviceName,
// advertiseAppName}). The service instance name is DeviceName, or an
// anonymized name when AnonymizeDeviceName is set or DeviceName is empty;
// the transport's BonjourServiceName setting is not used.
type Config struct {
	DeviceName          string
	SDKVersion          string
	AppName             string
	AppVersion          string
	AnonymizeDeviceName bool
	AdvertiseAppName    bool
	PairingRequired     bool
	Port                int
}

// Advertiser wraps an mdns.Server registered under serviceType, carrying
// protocol/pairing metadata in its TXT record.
type Advertiser struct {
	config Config
	logger *logrus.Logger

	mu     sync.Mutex
	server *mdns.Server

	// stats mirrors the teacher's Stats shape, narrowed to the two counters
	// that matter for a single fixed service: how many times we've
	// (re)started advertising, and the last error, if any.
	stats Stats
}

// Stats reports advertiser lifecycle counters.
type Stats struct {
	Starts     int64
	LastError  string
}

// New constructs an Advertiser. Start must be called to begin responding
// to mDNS queries.
func New(cfg Config, logger *logrus.Logger) *Advertiser {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Advertiser{config: cfg, logger: logger}
}

// Start registers the mDNS service. It is safe to call again after Stop
// to re-advertise on a new port (e.g. after a network restart, orig §4.3).
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return nil
	}

	name := a.config.DeviceName
	if a.config.AnonymizeDeviceName || name == "" {
		name = anonymizedInstanceName()
	}

	host, err := os.Hostname()
	if err != nil {
		host = "probysdk"
	}

	svc, err := mdns.NewMDNSService(
		name,
		serviceType,
		"",
		host+".",
		a.config.Port,
		nil,
		a.buildTXT(name),
	)
	if err != nil {
		a.stats.LastError = err.Error()
		return apperrors.TransportError("build_service", "failed to build mDNS service record").Wrap(err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: svc})
	if err != nil {
		a.stats.LastError = err.Error()
		return apperrors.TransportError("start_server", "failed to start mDNS server").Wrap(err)
	}

	a.server = server
	a.stats.Starts++
	a.logger.WithFields(logrus.Fields{"component": "advertiser", "name": name, "port": a.config.Port}).
		Info("mDNS advertisement started")
	return nil
}

// Stop withdraws the mDNS registration. Idempotent.
func (a *Advertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return nil
	}
	err := a.server.Shutdown()
	a.server = nil
	return err
}

// Stats returns a snapshot of lifecycle counters.
func (a *Advertiser) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// SetPort updates the advertised port, used when the server bound an
// ephemeral port (Config.Port == 0) or after a netmonitor-triggered
// restart picked a new one.
func (a *Advertiser) SetPort(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.config.Port = port
}

func (a *Advertiser) buildTXT(name string) []string {
	txt := []string{
		"device_name=" + name,
		"protocol=1",
		"sdk_version=" + a.config.SDKVersion,
		"pairing_required=" + strconv.FormatBool(a.config.PairingRequired),
	}
	if a.config.AdvertiseAppName && a.config.AppName != "" {
		txt = append(txt, "app_name="+a.config.AppName)
		if a.config.AppVersion != "" {
			txt = append(txt, "app_version="+a.config.AppVersion)
		}
	}
	return txt
}

// anonymizedInstanceName produces a stable-for-the-process but
// non-identifying instance name when orig §3's anonymizeDeviceName is set,
// since the real hostname or device name would otherwise leak into the
// Bonjour service name visible to any nearby scanner.
func anonymizedInstanceName() string {
	pid := os.Getpid()
	return "ProbySDK-" + strconv.Itoa(pid)
}
