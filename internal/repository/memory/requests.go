package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/repository"
	"github.com/spec-kit/ticket-rewards/internal/scope"
)

type requestRepo struct{ s *Store }

func (r requestRepo) Create(_ context.Context, req *domain.TicketRequest) error {
	return r.s.write(func(d *dataset) error {
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		req.CreatedAt = now
		req.UpdatedAt = now
		d.requests[req.ID] = copyRequest(*req)
		return nil
	})
}

func (r requestRepo) GetByID(_ context.Context, id string) (*domain.TicketRequest, error) {
	var out *domain.TicketRequest
	r.s.read(func(d *dataset) {
		if req, ok := d.requests[id]; ok {
			req = copyRequest(req)
			out = &req
		}
	})
	if out == nil {
		return nil, errNotFound
	}
	return out, nil
}

func (r requestRepo) GetForUpdate(ctx context.Context, id string) (*domain.TicketRequest, error) {
	return r.GetByID(ctx, id)
}

func (r requestRepo) UpdateDecision(_ context.Context, req *domain.TicketRequest) error {
	return r.s.write(func(d *dataset) error {
		current, ok := d.requests[req.ID]
		if !ok || current.Status != domain.TicketRequestPending {
			return errNotFound
		}
		current.Status = req.Status
		current.RejectionReason = copyString(req.RejectionReason)
		current.ValidatorID = copyString(req.ValidatorID)
		current.TicketID = copyString(req.TicketID)
		current.ValidatedAt = copyTime(req.ValidatedAt)
		current.UpdatedAt = time.Now().UTC()
		req.UpdatedAt = current.UpdatedAt
		d.requests[req.ID] = current
		return nil
	})
}

func (r requestRepo) List(_ context.Context, filter repository.TicketRequestFilter, pred scope.RequestPredicate) ([]domain.TicketRequest, error) {
	var result []domain.TicketRequest
	r.s.read(func(d *dataset) {
		for _, req := range d.requests {
			if !pred.Matches(req.ClientID) {
				continue
			}
			if filter.Status != nil && req.Status != *filter.Status {
				continue
			}
			if filter.ProjectID != nil && req.ProjectID != *filter.ProjectID {
				continue
			}
			result = append(result, copyRequest(req))
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return paginate(result, filter.Page), nil
}

func (r requestRepo) Stats(_ context.Context, pred scope.RequestPredicate) (domain.TicketRequestStats, error) {
	var stats domain.TicketRequestStats
	r.s.read(func(d *dataset) {
		for _, req := range d.requests {
			if !pred.Matches(req.ClientID) {
				continue
			}
			stats.Total++
			switch req.Status {
			case domain.TicketRequestPending:
				stats.Pending++
			case domain.TicketRequestApproved:
				stats.Approved++
			case domain.TicketRequestRejected:
				stats.Rejected++
			}
		}
	})
	return stats, nil
}

func copyRequest(req domain.TicketRequest) domain.TicketRequest {
	req.StageID = copyString(req.StageID)
	req.RejectionReason = copyString(req.RejectionReason)
	req.ValidatorID = copyString(req.ValidatorID)
	req.TicketID = copyString(req.TicketID)
	req.ValidatedAt = copyTime(req.ValidatedAt)
	return req
}
