package sqlfailover

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clusterops/azsql-bulk-failover/internal/armclient"
	"go.uber.org/zap"
)

// lroStatusBody is the shape of an Azure-AsyncOperation status response.
type lroStatusBody struct {
	Status string `json:"status"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const (
	lroStatusSucceeded = "Succeeded"
	lroStatusFailed    = "Failed"

	notInStateToFailoverCode = "DatabaseNotInStateToFailover"
)

// Initiate advances a target out of Pending (spec §4.5). An ineligible
// target goes straight to Skipped without issuing any request; otherwise
// a POST is sent to the target's failover path.
func Initiate(ctx context.Context, client *armclient.Client, logger *zap.Logger, t *Target) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if t.Status != StatusPending {
		return
	}

	if !t.ShouldFailover {
		t.Status = StatusSkipped
		t.Message = "not eligible (hyperscale) or not active (offline)"
		logger.Info("target skipped (ineligible)", zap.String("target", t.ResourceID))
		return
	}

	status, headers, body, err := client.Do(ctx, "POST", t.FailoverPath(), nil)
	if err != nil {
		t.Status = StatusFailed
		t.Message = err.Error()
		logger.Error("initiate transport error", zap.String("target", t.ResourceID), zap.Error(err))
		return
	}

	if status != 200 && status != 202 {
		t.Status = StatusFailed
		t.Message = string(body)
		logger.Warn("initiate rejected",
			zap.String("target", t.ResourceID), zap.Int("status", status), zap.String("body", string(body)))
		return
	}

	t.Status = StatusInProgress
	t.StatusPath = armclient.ToManagementRelative(headers.Get("Azure-AsyncOperation"))
	logger.Info("failover initiated", zap.String("target", t.ResourceID), zap.String("statusPath", t.StatusPath))
}

// Poll advances an InProgress target by checking its LRO status endpoint
// (spec §4.5). It is a no-op on targets that are not InProgress.
func Poll(ctx context.Context, client *armclient.Client, logger *zap.Logger, t *Target) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if t.Status != StatusInProgress {
		return
	}

	status, _, body, err := client.Do(ctx, "GET", t.StatusPath, nil)
	if err != nil {
		t.Status = StatusFailed
		t.Message = err.Error()
		logger.Error("poll transport error", zap.String("target", t.ResourceID), zap.Error(err))
		return
	}

	if status != 200 {
		t.Status = StatusFailed
		t.Message = string(body)
		logger.Warn("poll non-200", zap.String("target", t.ResourceID), zap.Int("status", status))
		return
	}

	var lro lroStatusBody
	if err := json.Unmarshal(body, &lro); err != nil {
		t.Status = StatusFailed
		t.Message = fmt.Sprintf("decode LRO status: %v", err)
		logger.Error("poll decode error", zap.String("target", t.ResourceID), zap.Error(err))
		return
	}

	switch lro.Status {
	case lroStatusSucceeded:
		t.Status = StatusSucceeded
		logger.Info("failover succeeded", zap.String("target", t.ResourceID))
	case lroStatusFailed:
		if lro.Error != nil && lro.Error.Code == notInStateToFailoverCode {
			t.Status = StatusSkipped
			t.Message = "serverless/offline, no failover needed"
			logger.Info("failover skipped (not in failover state)", zap.String("target", t.ResourceID))
			return
		}
		t.Status = StatusFailed
		if lro.Error != nil {
			t.Message = lro.Error.Message
		} else {
			t.Message = "failover failed"
		}
		logger.Warn("failover failed", zap.String("target", t.ResourceID), zap.String("message", t.Message))
	default:
		// InProgress, Running, or any other non-terminal status: stay put.
	}
}

// Cancel transitions a non-terminal target to Failed with a "cancelled"
// message (spec §5, error class 7). It is a no-op on terminal targets.
func Cancel(t *Target) {
	if t.Status.IsTerminal() {
		return
	}
	t.Status = StatusFailed
	t.Message = "cancelled"
}
