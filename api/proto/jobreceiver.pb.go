// Package proto contains the Go bindings for the jobreceiver gRPC contract
// spoken between the MachaonWeb root coordinator and its computing nodes.
//
// The bindings are maintained by hand alongside jobreceiver.proto; keep the
// field numbers in both files in sync.
package proto

import (
	context "context"
	fmt "fmt"

	proto "github.com/golang/protobuf/proto"
	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

// Reference import to keep the proto runtime linked even when only the
// service bindings are used.
var _ = proto.Marshal
var _ = fmt.Errorf

// StatusRequest is the empty probe message for JobReceiver.GetStatus.
type StatusRequest struct {
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *StatusRequest) Reset()         { *m = StatusRequest{} }
func (m *StatusRequest) String() string { return proto.CompactTextString(m) }
func (*StatusRequest) ProtoMessage()    {}

// ServerStatus carries a node's reply to a probe or a synchronization upload.
type ServerStatus struct {
	StatusCode           int32    `protobuf:"varint,1,opt,name=status_code,json=statusCode,proto3" json:"status_code,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *ServerStatus) Reset()         { *m = ServerStatus{} }
func (m *ServerStatus) String() string { return proto.CompactTextString(m) }
func (*ServerStatus) ProtoMessage()    {}

func (m *ServerStatus) GetStatusCode() int32 {
	if m != nil {
		return m.StatusCode
	}
	return 0
}

// JobRequest describes one comparison job dispatched to a node.
type JobRequest struct {
	ReferenceId          string   `protobuf:"bytes,1,opt,name=reference_id,json=referenceId,proto3" json:"reference_id,omitempty"`
	RequestId            int64    `protobuf:"varint,2,opt,name=request_id,json=requestId,proto3" json:"request_id,omitempty"`
	Listname             string   `protobuf:"bytes,3,opt,name=listname,proto3" json:"listname,omitempty"`
	StructureIds         []string `protobuf:"bytes,4,rep,name=structure_ids,json=structureIds,proto3" json:"structure_ids,omitempty"`
	MetaAnalysis         bool     `protobuf:"varint,5,opt,name=meta_analysis,json=metaAnalysis,proto3" json:"meta_analysis,omitempty"`
	GoTerm               string   `protobuf:"bytes,6,opt,name=go_term,json=goTerm,proto3" json:"go_term,omitempty"`
	Hash                 string   `protobuf:"bytes,7,opt,name=hash,proto3" json:"hash,omitempty"`
	ComparisonMode       int32    `protobuf:"varint,8,opt,name=comparison_mode,json=comparisonMode,proto3" json:"comparison_mode,omitempty"`
	SegmentStart         int32    `protobuf:"varint,9,opt,name=segment_start,json=segmentStart,proto3" json:"segment_start,omitempty"`
	SegmentEnd           int32    `protobuf:"varint,10,opt,name=segment_end,json=segmentEnd,proto3" json:"segment_end,omitempty"`
	AlignmentLevel       int32    `protobuf:"varint,11,opt,name=alignment_level,json=alignmentLevel,proto3" json:"alignment_level,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *JobRequest) Reset()         { *m = JobRequest{} }
func (m *JobRequest) String() string { return proto.CompactTextString(m) }
func (*JobRequest) ProtoMessage()    {}

func (m *JobRequest) GetReferenceId() string {
	if m != nil {
		return m.ReferenceId
	}
	return ""
}

func (m *JobRequest) GetRequestId() int64 {
	if m != nil {
		return m.RequestId
	}
	return 0
}

func (m *JobRequest) GetListname() string {
	if m != nil {
		return m.Listname
	}
	return ""
}

func (m *JobRequest) GetStructureIds() []string {
	if m != nil {
		return m.StructureIds
	}
	return nil
}

func (m *JobRequest) GetMetaAnalysis() bool {
	if m != nil {
		return m.MetaAnalysis
	}
	return false
}

func (m *JobRequest) GetGoTerm() string {
	if m != nil {
		return m.GoTerm
	}
	return ""
}

func (m *JobRequest) GetHash() string {
	if m != nil {
		return m.Hash
	}
	return ""
}

func (m *JobRequest) GetComparisonMode() int32 {
	if m != nil {
		return m.ComparisonMode
	}
	return 0
}

func (m *JobRequest) GetSegmentStart() int32 {
	if m != nil {
		return m.SegmentStart
	}
	return 0
}

func (m *JobRequest) GetSegmentEnd() int32 {
	if m != nil {
		return m.SegmentEnd
	}
	return 0
}

func (m *JobRequest) GetAlignmentLevel() int32 {
	if m != nil {
		return m.AlignmentLevel
	}
	return 0
}

// JobStatus is a node's answer to a StartJob call.
type JobStatus struct {
	RequestId            int64    `protobuf:"varint,1,opt,name=request_id,json=requestId,proto3" json:"request_id,omitempty"`
	StatusCode           int32    `protobuf:"varint,2,opt,name=status_code,json=statusCode,proto3" json:"status_code,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *JobStatus) Reset()         { *m = JobStatus{} }
func (m *JobStatus) String() string { return proto.CompactTextString(m) }
func (*JobStatus) ProtoMessage()    {}

func (m *JobStatus) GetRequestId() int64 {
	if m != nil {
		return m.RequestId
	}
	return 0
}

func (m *JobStatus) GetStatusCode() int32 {
	if m != nil {
		return m.StatusCode
	}
	return 0
}

// ResultRequest asks a node for the result archive of a finished job.
type ResultRequest struct {
	Hash                 string   `protobuf:"bytes,1,opt,name=hash,proto3" json:"hash,omitempty"`
	RequestId            int64    `protobuf:"varint,2,opt,name=request_id,json=requestId,proto3" json:"request_id,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *ResultRequest) Reset()         { *m = ResultRequest{} }
func (m *ResultRequest) String() string { return proto.CompactTextString(m) }
func (*ResultRequest) ProtoMessage()    {}

func (m *ResultRequest) GetHash() string {
	if m != nil {
		return m.Hash
	}
	return ""
}

func (m *ResultRequest) GetRequestId() int64 {
	if m != nil {
		return m.RequestId
	}
	return 0
}

// JobDetails is the one-time header of a result download stream. SecureHash
// holds the SHA-256 of the archive the node is about to stream.
type JobDetails struct {
	RequestId            int64    `protobuf:"varint,1,opt,name=request_id,json=requestId,proto3" json:"request_id,omitempty"`
	Hash                 string   `protobuf:"bytes,2,opt,name=hash,proto3" json:"hash,omitempty"`
	SecureHash           string   `protobuf:"bytes,3,opt,name=secure_hash,json=secureHash,proto3" json:"secure_hash,omitempty"`
	StatusCode           int32    `protobuf:"varint,4,opt,name=status_code,json=statusCode,proto3" json:"status_code,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *JobDetails) Reset()         { *m = JobDetails{} }
func (m *JobDetails) String() string { return proto.CompactTextString(m) }
func (*JobDetails) ProtoMessage()    {}

func (m *JobDetails) GetRequestId() int64 {
	if m != nil {
		return m.RequestId
	}
	return 0
}

func (m *JobDetails) GetHash() string {
	if m != nil {
		return m.Hash
	}
	return ""
}

func (m *JobDetails) GetSecureHash() string {
	if m != nil {
		return m.SecureHash
	}
	return ""
}

func (m *JobDetails) GetStatusCode() int32 {
	if m != nil {
		return m.StatusCode
	}
	return 0
}

// JobResult is one element of a result download stream: either the FileInfo
// header or a chunk of archive bytes.
type JobResult struct {
	// Types that are valid to be assigned to JobData:
	//	*JobResult_FileInfo
	//	*JobResult_ChunkData
	JobData              isJobResult_JobData `protobuf_oneof:"job_data"`
	XXX_NoUnkeyedLiteral struct{}            `json:"-"`
	XXX_unrecognized     []byte              `json:"-"`
	XXX_sizecache        int32               `json:"-"`
}

func (m *JobResult) Reset()         { *m = JobResult{} }
func (m *JobResult) String() string { return proto.CompactTextString(m) }
func (*JobResult) ProtoMessage()    {}

type isJobResult_JobData interface {
	isJobResult_JobData()
}

type JobResult_FileInfo struct {
	FileInfo *JobDetails `protobuf:"bytes,1,opt,name=file_info,json=fileInfo,proto3,oneof"`
}

type JobResult_ChunkData struct {
	ChunkData []byte `protobuf:"bytes,2,opt,name=chunk_data,json=chunkData,proto3,oneof"`
}

func (*JobResult_FileInfo) isJobResult_JobData() {}

func (*JobResult_ChunkData) isJobResult_JobData() {}

func (m *JobResult) GetJobData() isJobResult_JobData {
	if m != nil {
		return m.JobData
	}
	return nil
}

func (m *JobResult) GetFileInfo() *JobDetails {
	if x, ok := m.GetJobData().(*JobResult_FileInfo); ok {
		return x.FileInfo
	}
	return nil
}

func (m *JobResult) GetChunkData() []byte {
	if x, ok := m.GetJobData().(*JobResult_ChunkData); ok {
		return x.ChunkData
	}
	return nil
}

// XXX_OneofWrappers is for the internal use of the proto package.
func (*JobResult) XXX_OneofWrappers() []interface{} {
	return []interface{}{
		(*JobResult_FileInfo)(nil),
		(*JobResult_ChunkData)(nil),
	}
}

// UncachedData is one element of a synchronization upload stream: the
// archive hash first, then chunks of archive bytes.
type UncachedData struct {
	// Types that are valid to be assigned to SyncData:
	//	*UncachedData_SecureHash
	//	*UncachedData_ChunkData
	SyncData             isUncachedData_SyncData `protobuf_oneof:"sync_data"`
	XXX_NoUnkeyedLiteral struct{}                `json:"-"`
	XXX_unrecognized     []byte                  `json:"-"`
	XXX_sizecache        int32                   `json:"-"`
}

func (m *UncachedData) Reset()         { *m = UncachedData{} }
func (m *UncachedData) String() string { return proto.CompactTextString(m) }
func (*UncachedData) ProtoMessage()    {}

type isUncachedData_SyncData interface {
	isUncachedData_SyncData()
}

type UncachedData_SecureHash struct {
	SecureHash string `protobuf:"bytes,1,opt,name=secure_hash,json=secureHash,proto3,oneof"`
}

type UncachedData_ChunkData struct {
	ChunkData []byte `protobuf:"bytes,2,opt,name=chunk_data,json=chunkData,proto3,oneof"`
}

func (*UncachedData_SecureHash) isUncachedData_SyncData() {}

func (*UncachedData_ChunkData) isUncachedData_SyncData() {}

func (m *UncachedData) GetSyncData() isUncachedData_SyncData {
	if m != nil {
		return m.SyncData
	}
	return nil
}

func (m *UncachedData) GetSecureHash() string {
	if x, ok := m.GetSyncData().(*UncachedData_SecureHash); ok {
		return x.SecureHash
	}
	return ""
}

func (m *UncachedData) GetChunkData() []byte {
	if x, ok := m.GetSyncData().(*UncachedData_ChunkData); ok {
		return x.ChunkData
	}
	return nil
}

// XXX_OneofWrappers is for the internal use of the proto package.
func (*UncachedData) XXX_OneofWrappers() []interface{} {
	return []interface{}{
		(*UncachedData_SecureHash)(nil),
		(*UncachedData_ChunkData)(nil),
	}
}

func init() {
	proto.RegisterType((*StatusRequest)(nil), "jobreceiver.StatusRequest")
	proto.RegisterType((*ServerStatus)(nil), "jobreceiver.ServerStatus")
	proto.RegisterType((*JobRequest)(nil), "jobreceiver.JobRequest")
	proto.RegisterType((*JobStatus)(nil), "jobreceiver.JobStatus")
	proto.RegisterType((*ResultRequest)(nil), "jobreceiver.ResultRequest")
	proto.RegisterType((*JobDetails)(nil), "jobreceiver.JobDetails")
	proto.RegisterType((*JobResult)(nil), "jobreceiver.JobResult")
	proto.RegisterType((*UncachedData)(nil), "jobreceiver.UncachedData")
}

// JobReceiverClient is the client API for the JobReceiver service.
type JobReceiverClient interface {
	GetStatus(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*ServerStatus, error)
	StartJob(ctx context.Context, in *JobRequest, opts ...grpc.CallOption) (*JobStatus, error)
	DownloadResult(ctx context.Context, in *ResultRequest, opts ...grpc.CallOption) (JobReceiver_DownloadResultClient, error)
	Synchronize(ctx context.Context, opts ...grpc.CallOption) (JobReceiver_SynchronizeClient, error)
}

type jobReceiverClient struct {
	cc *grpc.ClientConn
}

// NewJobReceiverClient creates a client stub over an established connection.
func NewJobReceiverClient(cc *grpc.ClientConn) JobReceiverClient {
	return &jobReceiverClient{cc}
}

func (c *jobReceiverClient) GetStatus(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*ServerStatus, error) {
	out := new(ServerStatus)
	err := c.cc.Invoke(ctx, "/jobreceiver.JobReceiver/GetStatus", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *jobReceiverClient) StartJob(ctx context.Context, in *JobRequest, opts ...grpc.CallOption) (*JobStatus, error) {
	out := new(JobStatus)
	err := c.cc.Invoke(ctx, "/jobreceiver.JobReceiver/StartJob", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *jobReceiverClient) DownloadResult(ctx context.Context, in *ResultRequest, opts ...grpc.CallOption) (JobReceiver_DownloadResultClient, error) {
	stream, err := c.cc.NewStream(ctx, &_JobReceiver_serviceDesc.Streams[0], "/jobreceiver.JobReceiver/DownloadResult", opts...)
	if err != nil {
		return nil, err
	}
	x := &jobReceiverDownloadResultClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// JobReceiver_DownloadResultClient is the client view of a result download
// stream.
type JobReceiver_DownloadResultClient interface {
	Recv() (*JobResult, error)
	grpc.ClientStream
}

type jobReceiverDownloadResultClient struct {
	grpc.ClientStream
}

func (x *jobReceiverDownloadResultClient) Recv() (*JobResult, error) {
	m := new(JobResult)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *jobReceiverClient) Synchronize(ctx context.Context, opts ...grpc.CallOption) (JobReceiver_SynchronizeClient, error) {
	stream, err := c.cc.NewStream(ctx, &_JobReceiver_serviceDesc.Streams[1], "/jobreceiver.JobReceiver/Synchronize", opts...)
	if err != nil {
		return nil, err
	}
	x := &jobReceiverSynchronizeClient{stream}
	return x, nil
}

// JobReceiver_SynchronizeClient is the client view of a synchronization
// upload stream.
type JobReceiver_SynchronizeClient interface {
	Send(*UncachedData) error
	CloseAndRecv() (*ServerStatus, error)
	grpc.ClientStream
}

type jobReceiverSynchronizeClient struct {
	grpc.ClientStream
}

func (x *jobReceiverSynchronizeClient) Send(m *UncachedData) error {
	return x.ClientStream.SendMsg(m)
}

func (x *jobReceiverSynchronizeClient) CloseAndRecv() (*ServerStatus, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	m := new(ServerStatus)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// JobReceiverServer is the server API for the JobReceiver service. The
// coordinator only consumes the client side; the server bindings exist for
// in-process test doubles.
type JobReceiverServer interface {
	GetStatus(context.Context, *StatusRequest) (*ServerStatus, error)
	StartJob(context.Context, *JobRequest) (*JobStatus, error)
	DownloadResult(*ResultRequest, JobReceiver_DownloadResultServer) error
	Synchronize(JobReceiver_SynchronizeServer) error
}

// UnimplementedJobReceiverServer can be embedded to have forward compatible
// implementations.
type UnimplementedJobReceiverServer struct{}

func (*UnimplementedJobReceiverServer) GetStatus(context.Context, *StatusRequest) (*ServerStatus, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetStatus not implemented")
}
func (*UnimplementedJobReceiverServer) StartJob(context.Context, *JobRequest) (*JobStatus, error) {
	return nil, status.Errorf(codes.Unimplemented, "method StartJob not implemented")
}
func (*UnimplementedJobReceiverServer) DownloadResult(*ResultRequest, JobReceiver_DownloadResultServer) error {
	return status.Errorf(codes.Unimplemented, "method DownloadResult not implemented")
}
func (*UnimplementedJobReceiverServer) Synchronize(JobReceiver_SynchronizeServer) error {
	return status.Errorf(codes.Unimplemented, "method Synchronize not implemented")
}

// RegisterJobReceiverServer registers a JobReceiver implementation on a gRPC
// server.
func RegisterJobReceiverServer(s *grpc.Server, srv JobReceiverServer) {
	s.RegisterService(&_JobReceiver_serviceDesc, srv)
}

func _JobReceiver_GetStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobReceiverServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/jobreceiver.JobReceiver/GetStatus",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(JobReceiverServer).GetStatus(ctx, req.(*StatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _JobReceiver_StartJob_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(JobRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobReceiverServer).StartJob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/jobreceiver.JobReceiver/StartJob",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(JobReceiverServer).StartJob(ctx, req.(*JobRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _JobReceiver_DownloadResult_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(ResultRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(JobReceiverServer).DownloadResult(m, &jobReceiverDownloadResultServer{stream})
}

// JobReceiver_DownloadResultServer is the server view of a result download
// stream.
type JobReceiver_DownloadResultServer interface {
	Send(*JobResult) error
	grpc.ServerStream
}

type jobReceiverDownloadResultServer struct {
	grpc.ServerStream
}

func (x *jobReceiverDownloadResultServer) Send(m *JobResult) error {
	return x.ServerStream.SendMsg(m)
}

func _JobReceiver_Synchronize_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(JobReceiverServer).Synchronize(&jobReceiverSynchronizeServer{stream})
}

// JobReceiver_SynchronizeServer is the server view of a synchronization
// upload stream.
type JobReceiver_SynchronizeServer interface {
	SendAndClose(*ServerStatus) error
	Recv() (*UncachedData, error)
	grpc.ServerStream
}

type jobReceiverSynchronizeServer struct {
	grpc.ServerStream
}

func (x *jobReceiverSynchronizeServer) SendAndClose(m *ServerStatus) error {
	return x.ServerStream.SendMsg(m)
}

func (x *jobReceiverSynchronizeServer) Recv() (*UncachedData, error) {
	m := new(UncachedData)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

var _JobReceiver_serviceDesc = grpc.ServiceDesc{
	ServiceName: "jobreceiver.JobReceiver",
	HandlerType: (*JobReceiverServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler:    _JobReceiver_GetStatus_Handler,
		},
		{
			MethodName: "StartJob",
			Handler:    _JobReceiver_StartJob_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "DownloadResult",
			Handler:       _JobReceiver_DownloadResult_Handler,
			ServerStreams: true,
		},
		{
			StreamName:    "Synchronize",
			Handler:       _JobReceiver_Synchronize_Handler,
			ClientStreams: true,
		},
	},
	Metadata: "jobreceiver.proto",
}
