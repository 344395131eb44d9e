package transport

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/machaonweb/machaonweb/api/proto"
)

type fakeNode struct {
	proto.UnimplementedJobReceiverServer

	statusCode   int32
	startStatus  int32
	resultChunks [][]byte
	details      *proto.JobDetails

	gotSyncHash string
	gotSyncData []byte
}

func (f *fakeNode) GetStatus(ctx context.Context, _ *proto.StatusRequest) (*proto.ServerStatus, error) {
	return &proto.ServerStatus{StatusCode: f.statusCode}, nil
}

func (f *fakeNode) StartJob(ctx context.Context, req *proto.JobRequest) (*proto.JobStatus, error) {
	return &proto.JobStatus{RequestId: req.GetRequestId(), StatusCode: f.startStatus}, nil
}

func (f *fakeNode) DownloadResult(req *proto.ResultRequest, stream proto.JobReceiver_DownloadResultServer) error {
	if f.details != nil {
		if err := stream.Send(&proto.JobResult{
			JobData: &proto.JobResult_FileInfo{FileInfo: f.details},
		}); err != nil {
			return err
		}
	}
	for _, chunk := range f.resultChunks {
		if err := stream.Send(&proto.JobResult{
			JobData: &proto.JobResult_ChunkData{ChunkData: chunk},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeNode) Synchronize(stream proto.JobReceiver_SynchronizeServer) error {
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			return stream.SendAndClose(&proto.ServerStatus{StatusCode: 0})
		}
		if err != nil {
			return err
		}
		switch data := msg.GetSyncData().(type) {
		case *proto.UncachedData_SecureHash:
			f.gotSyncHash = data.SecureHash
		case *proto.UncachedData_ChunkData:
			f.gotSyncData = append(f.gotSyncData, data.ChunkData...)
		}
	}
}

func newTestClient(t *testing.T, node *fakeNode) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	proto.RegisterJobReceiverServer(srv, node)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	return &Client{
		addr: "bufnet",
		dial: func(ctx context.Context) (*grpc.ClientConn, error) {
			return grpc.NewClient("passthrough:///bufnet",
				grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
					return lis.DialContext(ctx)
				}),
				grpc.WithTransportCredentials(insecure.NewCredentials()))
		},
	}
}

func TestGetStatus(t *testing.T) {
	client := newTestClient(t, &fakeNode{statusCode: 1})

	code, err := client.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), code)
}

func TestStartJob(t *testing.T) {
	client := newTestClient(t, &fakeNode{startStatus: 0})

	status, err := client.StartJob(context.Background(), &proto.JobRequest{
		ReferenceId:  "1ABC_A",
		RequestId:    42,
		StructureIds: []string{"2DEF_B"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), status.GetRequestId())
	assert.Equal(t, int32(0), status.GetStatusCode())
}

func TestDownloadResultWritesArchiveAndReturnsDetails(t *testing.T) {
	node := &fakeNode{
		details: &proto.JobDetails{
			RequestId:  42,
			Hash:       "12345",
			SecureHash: "deadbeef",
			StatusCode: 0,
		},
		resultChunks: [][]byte{[]byte("hello "), []byte("world")},
	}
	client := newTestClient(t, node)

	dest := filepath.Join(t.TempDir(), "result.zip")
	// A stale partial download must not survive the retry.
	require.NoError(t, os.WriteFile(dest, bytes.Repeat([]byte("x"), 64), 0o644))

	details, err := client.DownloadResult(context.Background(), "12345", 42, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(42), details.GetRequestId())
	assert.Equal(t, "deadbeef", details.GetSecureHash())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestDownloadResultWithoutDetails(t *testing.T) {
	client := newTestClient(t, &fakeNode{resultChunks: [][]byte{[]byte("data")}})

	dest := filepath.Join(t.TempDir(), "result.zip")
	details, err := client.DownloadResult(context.Background(), "12345", 42, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), details.GetRequestId())
	assert.Equal(t, int32(-1), details.GetStatusCode())
}

func TestSynchronizeStreamsHashThenChunks(t *testing.T) {
	node := &fakeNode{}
	client := newTestClient(t, node)

	payload := bytes.Repeat([]byte("abcdefgh"), 300)
	archive := filepath.Join(t.TempDir(), "sync.zip")
	require.NoError(t, os.WriteFile(archive, payload, 0o644))

	code, err := client.Synchronize(context.Background(), archive, "cafebabe")
	require.NoError(t, err)
	assert.Equal(t, int32(0), code)
	assert.Equal(t, "cafebabe", node.gotSyncHash)
	assert.Equal(t, payload, node.gotSyncData)
}
