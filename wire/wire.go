// Package wire implements the RPC envelope and the directory's
// control-plane message types. Directory payloads are marshalled through
// github.com/gogo/protobuf/proto. Since this workspace cannot run protoc,
// every message below is a hand-written struct with `protobuf:"..."`
// struct tags implementing the classic gogo proto.Message interface
// (Reset/String/ProtoMessage), which is exactly what codegen would have
// produced and is encoded/decoded purely by gogo/protobuf's reflection-based
// Marshal/Unmarshal — no generated marshalers are required for that to work.
package wire

import (
	"fmt"

	pb "github.com/gogo/protobuf/proto"
)

// Status is the outcome of one RPC call: OK or one of a fixed set of
// distinguishable failure kinds.
type Status int32

const (
	StatusOK Status = iota
	StatusUnknownEndpoint
	StatusDuplicateRegistration
	StatusNoRoute
	StatusServerError
	StatusNotFound
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusUnknownEndpoint:
		return "UNKNOWN_ENDPOINT"
	case StatusDuplicateRegistration:
		return "DUPLICATE_REGISTRATION"
	case StatusNoRoute:
		return "NO_ROUTE"
	case StatusServerError:
		return "SERVER_ERROR"
	case StatusNotFound:
		return "NOT_FOUND"
	default:
		return fmt.Sprintf("STATUS(%d)", s)
	}
}

// Envelope is the outer request frame: every inbound message on the
// transport listener carries one of these before the call-specific
// argument message is unpacked from Data.
type Envelope struct {
	RpcId     string `protobuf:"bytes,1,opt,name=rpc_id,proto3"`
	CallerId  string `protobuf:"bytes,2,opt,name=caller_id,proto3"`
	Service   string `protobuf:"bytes,3,opt,name=service,proto3"`
	Procedure string `protobuf:"bytes,4,opt,name=procedure,proto3"`
	Data      []byte `protobuf:"bytes,5,opt,name=data,proto3"`
	// Deadline is a Unix timestamp in microseconds; zero means no deadline.
	Deadline int64 `protobuf:"varint,6,opt,name=deadline,proto3"`
}

func (m *Envelope) Reset()         { *m = Envelope{} }
func (m *Envelope) String() string { return pb.CompactTextString(m) }
func (*Envelope) ProtoMessage()    {}

// Reply is the outer response frame: status, an optional error message,
// and the call-specific result message packed into Data.
type Reply struct {
	RpcId        string `protobuf:"bytes,1,opt,name=rpc_id,proto3"`
	Status       Status `protobuf:"varint,2,opt,name=status,proto3,enum=wire.Status"`
	ErrorMessage string `protobuf:"bytes,3,opt,name=error_message,proto3"`
	Data         []byte `protobuf:"bytes,4,opt,name=data,proto3"`
}

func (m *Reply) Reset()         { *m = Reply{} }
func (m *Reply) String() string { return pb.CompactTextString(m) }
func (*Reply) ProtoMessage()    {}

// A Codec marshals and unmarshals wire messages. The production Codec is
// backed by gogo/protobuf/proto's reflection-based encoding; tests may
// substitute a fake to exercise transport logic without real encoding.
type Codec interface {
	Encode(msg pb.Message) ([]byte, error)
	Decode(data []byte, msg pb.Message) error
}

// ProtoCodec is the production Codec, a thin wrapper over
// github.com/gogo/protobuf/proto's Marshal/Unmarshal.
type ProtoCodec struct{}

func (ProtoCodec) Encode(msg pb.Message) ([]byte, error)    { return pb.Marshal(msg) }
func (ProtoCodec) Decode(data []byte, msg pb.Message) error { return pb.Unmarshal(data, msg) }

// --- Directory control-plane messages ---
//
// One argument/reply pair per Directory operation, the structs a protoc
// run would have generated from a .proto describing the same RPCs;
// written by hand here since the toolchain cannot be invoked.

type RegisterMachineArgs struct {
	MachineId  string `protobuf:"bytes,1,opt,name=machine_id,proto3"`
	HostName   string `protobuf:"bytes,2,opt,name=host_name,proto3"`
	PublicIpv4 string `protobuf:"bytes,3,opt,name=public_ipv4,proto3"`
	PlatformId int32  `protobuf:"varint,4,opt,name=platform_id,proto3"`
}

func (m *RegisterMachineArgs) Reset()         { *m = RegisterMachineArgs{} }
func (m *RegisterMachineArgs) String() string { return pb.CompactTextString(m) }
func (*RegisterMachineArgs) ProtoMessage()    {}

type RegisterEndpointArgs struct {
	Type       string `protobuf:"bytes,1,opt,name=type,proto3"`
	Name       string `protobuf:"bytes,2,opt,name=name,proto3"`
	EndpointId string `protobuf:"bytes,3,opt,name=endpoint_id,proto3"`
	ContextId  string `protobuf:"bytes,4,opt,name=context_id,proto3"`
	MachineId  string `protobuf:"bytes,5,opt,name=machine_id,proto3"`
	ProcessId  int32  `protobuf:"varint,6,opt,name=process_id,proto3"`
	Port       int32  `protobuf:"varint,7,opt,name=port,proto3"`
}

func (m *RegisterEndpointArgs) Reset()         { *m = RegisterEndpointArgs{} }
func (m *RegisterEndpointArgs) String() string { return pb.CompactTextString(m) }
func (*RegisterEndpointArgs) ProtoMessage()    {}

type EndpointRecord struct {
	EndpointId string   `protobuf:"bytes,1,opt,name=endpoint_id,proto3"`
	Name       string   `protobuf:"bytes,2,opt,name=name,proto3"`
	Type       string   `protobuf:"bytes,3,opt,name=type,proto3"`
	ContextId  string   `protobuf:"bytes,4,opt,name=context_id,proto3"`
	MachineId  string   `protobuf:"bytes,5,opt,name=machine_id,proto3"`
	ProcessId  int32    `protobuf:"varint,6,opt,name=process_id,proto3"`
	Port       int32    `protobuf:"varint,7,opt,name=port,proto3"`
	Addresses  []string `protobuf:"bytes,8,rep,name=addresses,proto3"`
}

func (m *EndpointRecord) Reset()         { *m = EndpointRecord{} }
func (m *EndpointRecord) String() string { return pb.CompactTextString(m) }
func (*EndpointRecord) ProtoMessage()    {}

type MachineRecord struct {
	MachineId  string `protobuf:"bytes,1,opt,name=machine_id,proto3"`
	HostName   string `protobuf:"bytes,2,opt,name=host_name,proto3"`
	PublicIpv4 string `protobuf:"bytes,3,opt,name=public_ipv4,proto3"`
	PlatformId int32  `protobuf:"varint,4,opt,name=platform_id,proto3"`
}

func (m *MachineRecord) Reset()         { *m = MachineRecord{} }
func (m *MachineRecord) String() string { return pb.CompactTextString(m) }
func (*MachineRecord) ProtoMessage()    {}

// EndpointRef names an endpoint by id; used for unregisterEndpoint and as
// half of registerService/registerTopic.
type EndpointRef struct {
	EndpointId string `protobuf:"bytes,1,opt,name=endpoint_id,proto3"`
}

func (m *EndpointRef) Reset()         { *m = EndpointRef{} }
func (m *EndpointRef) String() string { return pb.CompactTextString(m) }
func (*EndpointRef) ProtoMessage()    {}

// RegisterKeyArgs is shared by registerService(methodSignature, endpointId)
// and registerTopic(topicName, endpointId): both are a string key mapped to
// an owning endpoint.
type RegisterKeyArgs struct {
	Key        string `protobuf:"bytes,1,opt,name=key,proto3"`
	EndpointId string `protobuf:"bytes,2,opt,name=endpoint_id,proto3"`
}

func (m *RegisterKeyArgs) Reset()         { *m = RegisterKeyArgs{} }
func (m *RegisterKeyArgs) String() string { return pb.CompactTextString(m) }
func (*RegisterKeyArgs) ProtoMessage()    {}

// LocateArgs is shared by locateService/locateTopic.
type LocateArgs struct {
	Key              string `protobuf:"bytes,1,opt,name=key,proto3"`
	ClientEndpointId string `protobuf:"bytes,2,opt,name=client_endpoint_id,proto3"`
}

func (m *LocateArgs) Reset()         { *m = LocateArgs{} }
func (m *LocateArgs) String() string { return pb.CompactTextString(m) }
func (*LocateArgs) ProtoMessage()    {}

// StringValue wraps a single string result (locate*'s address, a single
// key lookup, ...).
type StringValue struct {
	Value string `protobuf:"bytes,1,opt,name=value,proto3"`
}

func (m *StringValue) Reset()         { *m = StringValue{} }
func (m *StringValue) String() string { return pb.CompactTextString(m) }
func (*StringValue) ProtoMessage()    {}

// BoolValue wraps a single bool result (topicExists, isInitialized, health,
// ping).
type BoolValue struct {
	Value bool `protobuf:"varint,1,opt,name=value,proto3"`
}

func (m *BoolValue) Reset()         { *m = BoolValue{} }
func (m *BoolValue) String() string { return pb.CompactTextString(m) }
func (*BoolValue) ProtoMessage()    {}

// StringMap wraps listServices()/listTopics()'s key->endpointId snapshot.
type StringMap struct {
	Keys   []string `protobuf:"bytes,1,rep,name=keys,proto3"`
	Values []string `protobuf:"bytes,2,rep,name=values,proto3"`
}

func (m *StringMap) Reset()         { *m = StringMap{} }
func (m *StringMap) String() string { return pb.CompactTextString(m) }
func (*StringMap) ProtoMessage()    {}

// StringList wraps listMachines()/listEndpoints()'s identifier snapshot.
type StringList struct {
	Values []string `protobuf:"bytes,1,rep,name=values,proto3"`
}

func (m *StringList) Reset()         { *m = StringList{} }
func (m *StringList) String() string { return pb.CompactTextString(m) }
func (*StringList) ProtoMessage()    {}

// Empty carries no data; used for operations with no arguments
// (listServices, listTopics, listMachines, listEndpoints, isInitialized,
// health, ping).
type Empty struct{}

func (m *Empty) Reset()         { *m = Empty{} }
func (m *Empty) String() string { return pb.CompactTextString(m) }
func (*Empty) ProtoMessage()    {}
