package scheduler

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/machaonweb/machaonweb/api/proto"
	"github.com/machaonweb/machaonweb/pkg/log"
	"github.com/machaonweb/machaonweb/pkg/types"
)

// fulfillRequest handles the oldest queued request. A request whose
// fingerprint was already answered by an earlier successful job adopts that
// result through a reuse job row; anything else is dispatched to a node.
func (m *Monitor) fulfillRequest(ctx context.Context) (bool, error) {
	idle, err := m.store.CountIdleNodes()
	if err != nil {
		return false, err
	}
	if idle == 0 {
		return false, nil
	}

	request, found, err := m.store.NextPendingRequest()
	if err != nil {
		return false, err
	}
	if !found || request.ID <= 0 {
		return false, nil
	}

	secureHash, err := m.store.FindFulfilled(request.HashValue, request.Meta, request.GoTerm)
	if err != nil {
		return false, err
	}
	if len(secureHash) > 0 {
		// Answered before; adopt the archive without touching a node.
		err := m.store.InsertJob(types.NewJob{
			RequestID:      request.ID,
			NodeID:         types.ReuseNodeID,
			StatusCode:     types.JobStatusRunning,
			CompletionDate: sql.NullTime{Time: time.Now().UTC(), Valid: true},
			SecureHash:     secureHash,
		})
		if err != nil {
			return false, err
		}
		return false, nil
	}

	return m.assignJob(ctx, buildJobRequest(request))
}

// buildJobRequest maps a pending request row onto the wire message. The node
// receives only the first word of the candidate list title.
func buildJobRequest(request types.PendingRequest) *proto.JobRequest {
	listName := ""
	if request.ListName.Valid {
		parts := strings.Split(request.ListName.String, " ")
		if len(parts) > 0 {
			listName = parts[0]
		}
	}

	return &proto.JobRequest{
		ReferenceId:    request.Reference,
		RequestId:      request.ID,
		Listname:       listName,
		StructureIds:   strings.Split(request.CustomList, ","),
		MetaAnalysis:   request.Meta,
		GoTerm:         request.GoTerm,
		Hash:           request.HashValue,
		ComparisonMode: int32(request.ComparisonMode),
		SegmentStart:   int32(request.SegmentStart),
		SegmentEnd:     int32(request.SegmentEnd),
		AlignmentLevel: int32(request.AlignmentLevel),
	}
}

// assignJob offers the job to up to three randomly chosen idle nodes. A node
// answering the probe gets the job; start codes 1 and 2 burn a retry, any
// other non-zero code records a terminal failed job.
func (m *Monitor) assignJob(ctx context.Context, jobRequest *proto.JobRequest) (bool, error) {
	logger := log.WithRequestID(jobRequest.GetRequestId())

	nodes, err := m.store.ListAvailableNodes()
	if err != nil {
		logger.Debug().Err(err).Msg("failed to list available nodes")
		nodes = nil
	}
	if len(nodes) == 0 {
		return true, nil
	}

	retries := 3
	for {
		index := 0
		if len(nodes) > 1 {
			index = m.pickIndex(len(nodes))
		}
		node := nodes[index]

		client, err := m.dialer.Connect(node.IP, node.Domain)
		if err != nil {
			return false, err
		}
		status, err := client.GetStatus(ctx)
		if err != nil {
			logger.Debug().Err(err).Int("node_id", node.ID).Msg("node probe failed")
			status = -1
		}
		retries--

		if status == 1 {
			jobStatus, err := client.StartJob(ctx, jobRequest)
			if err != nil {
				logger.Debug().Err(err).Int("node_id", node.ID).Msg("job start failed")
				jobStatus = &proto.JobStatus{RequestId: -1, StatusCode: -1}
			}
			code := int(jobStatus.GetStatusCode())
			if code != 1 && code != 2 {
				completion := sql.NullTime{}
				if code != 0 {
					completion = sql.NullTime{Time: time.Now().UTC(), Valid: true}
				}
				err := m.store.InsertJob(types.NewJob{
					RequestID:      jobRequest.GetRequestId(),
					NodeID:         node.ID,
					CompletionDate: completion,
					StatusCode:     code,
					SecureHash:     "",
				})
				if err != nil {
					return false, err
				}
				if code == 0 {
					claimed, err := m.store.ClaimNode(node.ID)
					if err != nil {
						return false, err
					}
					if !claimed {
						logger.Warn().Int("node_id", node.ID).Msg("node claimed concurrently")
					}
				} else {
					// Finalization keys on the request id of the row
					// inserted above.
					if err := m.store.FinalizeJob(jobRequest.GetRequestId(), "", code); err != nil {
						return false, err
					}
					if err := m.store.SetNodeWorking(node.ID, false); err != nil {
						return false, err
					}
				}
			}
			retries = 0
		} else {
			m.sleep(probeRetryDelay)
		}

		if retries == 0 {
			break
		}
	}

	return true, nil
}
