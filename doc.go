/*
Package meshrpc is a distributed messaging middleware: a service-directory
and RPC runtime through which processes ("endpoints") discover each other,
advertise services and topics, and exchange calls over socket transports
(TCP, IPC, or in-process).

A directory (see package directory) tracks machines, endpoints, services
and topics, and is itself a self-hosted set of remotely callable methods
served by a transport.Listener. Internal housekeeping (statistics rotation,
liveness reporting) is driven by package periodictask on top of an
eventloop.EventLoop.

	Directory
		+ Machine m1
			+ Endpoint e1
				- Service e1.Frobnicate
				- Topic e1.events
*/
package meshrpc
