package memstore

import (
	"context"
	"slices"
	"time"

	"github.com/LeventeLantos/rental-messaging/internal/model"
)

type requestRepo struct{ s *Store }

func (r requestRepo) Create(ctx context.Context, req model.ServiceRequest) (model.ServiceRequest, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return model.ServiceRequest{}, s.Fail
	}
	if s.FailRequests != nil {
		return model.ServiceRequest{}, s.FailRequests
	}
	req.ID = s.id()
	if req.Status == "" {
		req.Status = model.RequestOpen
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	s.requests = append(s.requests, req)
	return req, nil
}

func (rr requestRepo) ListOpen(ctx context.Context, customerID int64, phone string, kinds []model.RequestKind) ([]model.ServiceRequest, error) {
	s := rr.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return nil, s.Fail
	}

	var out []model.ServiceRequest
	for i := len(s.requests) - 1; i >= 0; i-- {
		r := s.requests[i]
		if r.Status != model.RequestOpen && r.Status != model.RequestInProgress {
			continue
		}
		if !slices.Contains(kinds, r.Kind) {
			continue
		}
		if (customerID != 0 && r.CustomerID == customerID) || (customerID == 0 && r.Phone == phone) {
			out = append(out, r)
		}
	}
	return out, nil
}
