// Package transport implements the mTLS gRPC client side of the coordinator.
// Every RPC opens its own connection and closes it when the call returns;
// worker nodes stay unreachable between calls.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/machaonweb/machaonweb/api/proto"
)

// syncChunkSize is the upload chunk size used by Synchronize.
const syncChunkSize = 1024

// Factory builds per-node clients from a shared certificate directory.
type Factory struct {
	certsDir string
}

// NewFactory returns a factory reading machaonlocalca.cert, node0.cert and
// node0.key from certsDir.
func NewFactory(certsDir string) *Factory {
	return &Factory{certsDir: certsDir}
}

// Connect prepares a client for one node. No connection is opened yet; each
// RPC dials and tears down its own channel.
func (f *Factory) Connect(addr, domain string) (*Client, error) {
	creds, err := f.loadCredentials(domain)
	if err != nil {
		return nil, err
	}
	return &Client{addr: addr, creds: creds}, nil
}

func (f *Factory) loadCredentials(domain string) (credentials.TransportCredentials, error) {
	caPEM, err := os.ReadFile(filepath.Join(f.certsDir, "machaonlocalca.cert"))
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}
	certPool := x509.NewCertPool()
	if !certPool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}

	cert, err := tls.LoadX509KeyPair(
		filepath.Join(f.certsDir, "node0.cert"),
		filepath.Join(f.certsDir, "node0.key"))
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      certPool,
		ServerName:   domain,
		MinVersion:   tls.VersionTLS13,
	}
	return credentials.NewTLS(tlsConfig), nil
}

// Client talks to a single worker node.
type Client struct {
	addr  string
	creds credentials.TransportCredentials

	// dial is replaceable in tests to route through an in-memory listener.
	dial func(ctx context.Context) (*grpc.ClientConn, error)
}

func (c *Client) connect(ctx context.Context) (*grpc.ClientConn, error) {
	if c.dial != nil {
		return c.dial(ctx)
	}
	conn, err := grpc.NewClient(c.addr, grpc.WithTransportCredentials(c.creds))
	if err != nil {
		return nil, fmt.Errorf("failed to dial node %s: %w", c.addr, err)
	}
	return conn, nil
}

// GetStatus probes the node's availability and returns its status code.
func (c *Client) GetStatus(ctx context.Context) (int32, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	resp, err := proto.NewJobReceiverClient(conn).GetStatus(ctx, &proto.StatusRequest{})
	if err != nil {
		return 0, fmt.Errorf("failed to get node status: %w", err)
	}
	return resp.GetStatusCode(), nil
}

// StartJob submits a job to the node and returns its acceptance status.
func (c *Client) StartJob(ctx context.Context, req *proto.JobRequest) (*proto.JobStatus, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	resp, err := proto.NewJobReceiverClient(conn).StartJob(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to start job: %w", err)
	}
	return resp, nil
}

// DownloadResult streams the finished job archive into destPath, replacing
// any partial file left by an earlier attempt, and returns the job details
// carried in the stream. A stream without a details message yields the
// sentinel details (request id -1).
func (c *Client) DownloadResult(ctx context.Context, hash string, requestID int64, destPath string) (*proto.JobDetails, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	stream, err := proto.NewJobReceiverClient(conn).DownloadResult(ctx, &proto.ResultRequest{
		Hash:      hash,
		RequestId: requestID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open result stream: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create result file: %w", err)
	}
	defer out.Close()

	details := &proto.JobDetails{RequestId: -1, StatusCode: -1}
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to receive result chunk: %w", err)
		}
		switch data := chunk.GetJobData().(type) {
		case *proto.JobResult_FileInfo:
			details = data.FileInfo
		case *proto.JobResult_ChunkData:
			if _, err := out.Write(data.ChunkData); err != nil {
				return nil, fmt.Errorf("failed to write result chunk: %w", err)
			}
		default:
			// An empty variant marks the end of the stream.
			return details, out.Close()
		}
	}
	return details, out.Close()
}

// Synchronize uploads a cache archive to the node. The first stream message
// carries the archive's SHA-256; the rest carry the file in order.
func (c *Client) Synchronize(ctx context.Context, archivePath, secureHash string) (int32, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	archive, err := os.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open sync archive: %w", err)
	}
	defer archive.Close()

	stream, err := proto.NewJobReceiverClient(conn).Synchronize(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to open sync stream: %w", err)
	}

	if err := stream.Send(&proto.UncachedData{
		SyncData: &proto.UncachedData_SecureHash{SecureHash: secureHash},
	}); err != nil {
		return 0, fmt.Errorf("failed to send sync hash: %w", err)
	}

	buf := make([]byte, syncChunkSize)
	for {
		n, err := archive.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if err := stream.Send(&proto.UncachedData{
				SyncData: &proto.UncachedData_ChunkData{ChunkData: chunk},
			}); err != nil {
				return 0, fmt.Errorf("failed to send sync chunk: %w", err)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read sync archive: %w", err)
		}
	}

	resp, err := stream.CloseAndRecv()
	if err != nil {
		return 0, fmt.Errorf("failed to finish sync stream: %w", err)
	}
	return resp.GetStatusCode(), nil
}
