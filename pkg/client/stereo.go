package client

import (
	"context"

	"github.com/polymerlab/m2pcalc/pkg/errors"
	stereotypes "github.com/polymerlab/m2pcalc/pkg/types/stereo"
)

// StereoClient calls the /api/v1/stereo endpoints.
type StereoClient struct {
	client *Client
}

func (s *StereoClient) Assign(ctx context.Context, req *stereotypes.AssignRequest) (*stereotypes.AssignResponse, error) {
	if req == nil || req.SMILES == "" {
		return nil, errors.InvalidParam("smiles is required")
	}
	var resp stereotypes.AssignResponse
	if err := s.client.post(ctx, "/api/v1/stereo/assign", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *StereoClient) AssignVinyl(ctx context.Context, req *stereotypes.AssignRequest) (*stereotypes.AssignResponse, error) {
	if req == nil || req.SMILES == "" {
		return nil, errors.InvalidParam("smiles is required")
	}
	var resp stereotypes.AssignResponse
	if err := s.client.post(ctx, "/api/v1/stereo/assign-vinyl", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *StereoClient) Tacticity(ctx context.Context, req *stereotypes.TacticityRequest) (*stereotypes.TacticityResponse, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	var resp stereotypes.TacticityResponse
	if err := s.client.post(ctx, "/api/v1/stereo/tacticity", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Batch submits a whole job.  Per-item failures come back inside the result.
func (s *StereoClient) Batch(ctx context.Context, job *stereotypes.BatchJob) (*stereotypes.BatchResult, error) {
	if job == nil || len(job.Items) == 0 {
		return nil, errors.New(errors.ErrCodeBatchJobInvalid, "batch job has no items")
	}
	var resp stereotypes.BatchResult
	if err := s.client.post(ctx, "/api/v1/stereo/batch", job, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
