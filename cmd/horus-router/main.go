// Package main is the router broker binary: the length-framed TCP
// broker, run standalone so Link/Hub topics on separate hosts can be
// bridged across a network.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/horus-robotics/horus/cmn"
	"github.com/horus-robotics/horus/cmn/nlog"
	"github.com/horus-robotics/horus/hk"
	"github.com/horus-robotics/horus/router"
)

const logFlushInterval = 10 * time.Second

var (
	bindAddr    string
	port        int
	verbose     bool
	encrypt     bool
	tlsEnabled  bool
	tlsCertPath string
	tlsKeyPath  string
	adminAddr   string
)

func init() {
	flag.StringVar(&bindAddr, "bind", "0.0.0.0", "address to bind the broker's TCP listener")
	flag.IntVar(&port, "port", 7777, "broker TCP port")
	flag.BoolVar(&verbose, "verbose", false, "enable verbose logging")
	flag.BoolVar(&encrypt, "encrypt", false, "require the ephemeral-key handshake on every connection")
	flag.BoolVar(&tlsEnabled, "tls", false, "require TLS on every connection (overrides -encrypt)")
	flag.StringVar(&tlsCertPath, "tls-cert", "", "TLS certificate path (required with -tls)")
	flag.StringVar(&tlsKeyPath, "tls-key", "", "TLS key path (required with -tls)")
	flag.StringVar(&adminAddr, "admin", "", "address to serve /healthz and /stats on; empty disables it")
}

func main() {
	flag.Parse()

	cfg := cmn.DefaultConfig()
	cfg.Router.BindAddr = bindAddr
	cfg.Router.Port = port
	cfg.Router.Encrypt = encrypt
	cfg.Router.TLSEnabled = tlsEnabled
	cfg.Router.TLSCertPath = tlsCertPath
	cfg.Router.TLSKeyPath = tlsKeyPath
	cmn.Rom.Set(cfg)

	if tlsEnabled && (tlsCertPath == "" || tlsKeyPath == "") {
		fmt.Fprintln(os.Stderr, "horus-router: -tls requires both -tls-cert and -tls-key")
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", bindAddr, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		nlog.Errorf("horus-router: failed to listen on %s: %v", addr, err)
		os.Exit(1)
	}
	nlog.Infof("horus-router: listening on %s (tls=%v)", addr, tlsEnabled)

	b, err := router.NewBroker()
	if err != nil {
		nlog.Errorf("horus-router: %v", err)
		nlog.Flush()
		os.Exit(1)
	}

	hk.Reg("nlog-flush", func() time.Duration {
		nlog.Flush()
		return logFlushInterval
	}, logFlushInterval)

	if adminAddr != "" {
		go func() {
			if err := b.ServeAdmin(adminAddr); err != nil {
				nlog.Errorf("horus-router: admin server on %s exited: %v", adminAddr, err)
			}
		}()
		nlog.Infof("horus-router: admin surface on %s", adminAddr)
	}

	installSignalHandler(b)

	if err := b.Serve(ln); err != nil {
		nlog.Errorf("horus-router: serve error: %v", err)
		nlog.Flush()
		os.Exit(1)
	}
	nlog.Flush()
}

func installSignalHandler(b *router.Broker) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		nlog.Infof("horus-router: shutting down")
		b.Close()
		time.Sleep(100 * time.Millisecond)
		nlog.Flush()
		os.Exit(0)
	}()
}
