package ipc

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"clipto/internal/daemon"
	"clipto/internal/logging"
	"clipto/internal/queue"
	"clipto/internal/services"
	"clipto/internal/workflow"
)

// service holds the RPC methods. net/rpc requires the exported
// func (T) Name(req, *resp) error shape.
type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

// rpcError flattens err into the text the CLI prints. net/rpc only carries
// strings, so the user message travels with the error kind.
func rpcError(err error) error {
	if err == nil {
		return nil
	}
	var userErr *services.UserError
	if errors.As(err, &userErr) && userErr.Message != "" {
		return fmt.Errorf("%s: %s", services.Kind(err), userErr.Message)
	}
	var fields services.FieldErrors
	if errors.As(err, &fields) {
		return fmt.Errorf("%s: %s", services.Kind(err), fields.Error())
	}
	return err
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	st := s.daemon.Status(s.ctx)
	wf := st.Workflow
	*resp = StatusResponse{
		Running:     st.Running,
		PID:         st.PID,
		QueueDBPath: st.QueueDBPath,
		LockPath:    st.LockFilePath,
		LastError:   wf.LastError,
		QueueStats:  make(map[string]int, len(wf.QueueStats)),
	}
	for _, lane := range wf.Lanes {
		resp.Lanes = append(resp.Lanes, string(lane))
	}
	for status, n := range wf.QueueStats {
		resp.QueueStats[string(status)] = n
	}
	if wf.LastItem != nil {
		last := FromItem(wf.LastItem)
		resp.LastItem = &last
	}
	for name, h := range wf.StageHealth {
		resp.StageHealth = append(resp.StageHealth, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	slices.SortFunc(resp.StageHealth, func(a, b StageHealth) int { return cmp.Compare(a.Name, b.Name) })
	return nil
}

func (s *service) Submit(req SubmitRequest, resp *DeliveryResponse) error {
	item, err := s.daemon.Submit(s.ctx, workflow.Form(req))
	if err != nil {
		return rpcError(err)
	}
	resp.Delivery = FromItem(item)
	return nil
}

func (s *service) List(req ListRequest, resp *ListResponse) error {
	var statuses []queue.Status
	for _, raw := range req.Statuses {
		status, ok := queue.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("unknown status %q", raw)
		}
		statuses = append(statuses, status)
	}
	items, err := s.daemon.List(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Deliveries = make([]Delivery, 0, len(items))
	for _, item := range items {
		resp.Deliveries = append(resp.Deliveries, FromItem(item))
	}
	return nil
}

func (s *service) Show(req IDRequest, resp *DeliveryResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid delivery id %d", req.ID)
	}
	d, err := s.daemon.Describe(s.ctx, req.ID)
	if err != nil {
		return rpcError(err)
	}
	resp.Delivery = FromItem(d.Item)
	resp.Delivery.MintEnabled = d.MintEnabled
	resp.Delivery.Jobs = FromJobs(d.Jobs)
	return nil
}

func (s *service) Mint(req IDRequest, resp *MintResponse) error {
	key, err := s.daemon.RequestMint(s.ctx, req.ID)
	if err != nil {
		return rpcError(err)
	}
	resp.MintKey = key
	s.audit("mint confirmed via IPC", "ipc_mint", req.ID)
	return nil
}

func (s *service) Retry(req IDRequest, resp *DeliveryResponse) error {
	item, err := s.daemon.Retry(s.ctx, req.ID)
	if err != nil {
		return rpcError(err)
	}
	resp.Delivery = FromItem(item)
	s.audit("retry requested via IPC", "ipc_retry", req.ID)
	return nil
}

func (s *service) Remove(req IDRequest, resp *RemoveResponse) error {
	if err := s.daemon.Remove(s.ctx, req.ID); err != nil {
		return rpcError(err)
	}
	resp.Removed = true
	s.audit("delivery removed via IPC", "ipc_remove", req.ID)
	return nil
}

func (s *service) RecordShare(req ShareRequest, resp *DeliveryResponse) error {
	item, err := s.daemon.RecordShare(s.ctx, req.ID, req.TxHash, req.Handle)
	if err != nil {
		return rpcError(err)
	}
	resp.Delivery = FromItem(item)
	return nil
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	resp.Events = s.daemon.Events(req.Since, req.DeliveryID)
	resp.Next = req.Since
	if n := len(resp.Events); n > 0 {
		resp.Next = resp.Events[n-1].Seq
	}
	return nil
}

func (s *service) Health(_ HealthRequest, resp *HealthResponse) error {
	q, err := s.daemon.QueueHealth(s.ctx)
	if err != nil {
		return err
	}
	db, dbErr := s.daemon.DatabaseHealth(s.ctx)
	*resp = HealthResponse{
		Total:          q.Total,
		Waiting:        q.Waiting,
		Processing:     q.Processing,
		AwaitingMint:   q.AwaitingMint,
		Failed:         q.Failed,
		Done:           q.Done,
		DBPath:         db.DBPath,
		IntegrityCheck: db.IntegrityCheck,
		TotalJobs:      db.TotalJobs,
		Error:          db.Error,
	}
	if dbErr != nil && db.Error == "" {
		return dbErr
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent, resp.Message = sent, message
	return err
}

func (s *service) audit(msg, event string, id int64) {
	s.logger.Info(msg, logging.Int64(logging.FieldItemID, id), logging.String(logging.FieldEventType, event))
}
