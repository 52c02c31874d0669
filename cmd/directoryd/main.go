// Command directoryd runs the service directory as a standalone RPC
// server, listening for registerMachine/registerEndpoint/locateService/...
// calls over the wire protocol. Flag handling is a single positional
// argument parsed with the standard flag package, no subcommand framework.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/arashi-labs/meshrpc/directory"
	"github.com/arashi-labs/meshrpc/directorylog"
	"github.com/arashi-labs/meshrpc/eventloop"
	"github.com/arashi-labs/meshrpc/transport"
)

const defaultMasterAddress = "tcp://0.0.0.0:5555"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("directoryd", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: directoryd [masterAddress]\n\n")
		fmt.Fprintf(fs.Output(), "masterAddress is the socket the directory listens on (default %s).\n", defaultMasterAddress)
		fmt.Fprintf(fs.Output(), "Accepts tcp://host:port, ipc://path, or inproc://name.\n")
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	masterAddress := defaultMasterAddress
	if fs.NArg() > 0 {
		masterAddress = fs.Arg(0)
	}

	log := directorylog.New("directoryd", directorylog.LevelInfo)

	hostName, machineID, publicIPv4 := selfIdentity()

	el := eventloop.New()
	defer el.Shutdown()

	d := directory.New(machineID, hostName, publicIPv4, listenPort(masterAddress), log)

	ch, err := transport.NewZMQListenerChannel(masterAddress, nil)
	if err != nil {
		log.Errorf("directoryd: failed to listen on %s: %v", masterAddress, err)
		return 1
	}
	defer ch.Close()

	l := transport.New(ch, el, nil, log)
	d.RegisterHandlers(l)

	log.Infof("directoryd: listening on %s as endpoint %s", masterAddress, d.SelfEndpointID())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- l.Serve(ctx) }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sig:
		log.Infof("directoryd: shutdown signal received")
		d.SetLameduck(true)
		cancel()
		<-serveErr
	case err := <-serveErr:
		if err != nil {
			log.Errorf("directoryd: serve error: %v", err)
			return 1
		}
	}

	log.Infof("directoryd: shutdown complete")
	return 0
}

// selfIdentity derives this process's machine identity: the hostname
// doubles as machineId, and the first resolvable IPv4 address becomes the
// publicIpv4 recorded for this machine. Both are best-effort; an
// unresolvable host still starts up with an empty publicIPv4, meaning
// registered endpoints will only be reachable via ipc:// or inproc://.
func selfIdentity() (hostName, machineID, publicIPv4 string) {
	hostName, err := os.Hostname()
	if err != nil {
		hostName = "localhost"
	}
	machineID = hostName

	addrs, err := net.LookupIP(hostName)
	if err == nil {
		for _, a := range addrs {
			if v4 := a.To4(); v4 != nil && !v4.IsLoopback() {
				publicIPv4 = v4.String()
				break
			}
		}
	}
	return hostName, machineID, publicIPv4
}

// listenPort extracts the numeric port from a tcp:// masterAddress, for
// the directory's own self-registered EndpointContext. Non-tcp schemes
// (ipc://, inproc://) have no port; 0 is recorded, matching how
// RegisterEndpoint treats a portless endpoint.
func listenPort(masterAddress string) int {
	_, portStr, err := net.SplitHostPort(trimScheme(masterAddress))
	if err != nil {
		return 0
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return 0
	}
	return port
}

func trimScheme(url string) string {
	for _, scheme := range []string{"tcp://", "ipc://", "inproc://"} {
		if len(url) > len(scheme) && url[:len(scheme)] == scheme {
			return url[len(scheme):]
		}
	}
	return url
}
