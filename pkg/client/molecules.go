package client

import (
	"context"

	"github.com/polymerlab/m2pcalc/pkg/errors"
	stereotypes "github.com/polymerlab/m2pcalc/pkg/types/stereo"
)

// MoleculesClient calls the /api/v1/molecules endpoints.
type MoleculesClient struct {
	client *Client
}

// Centers lists the CIP-labelled centers of smiles.
func (m *MoleculesClient) Centers(ctx context.Context, smiles string, includeUnassigned bool) (*stereotypes.MoleculeResponse, error) {
	if smiles == "" {
		return nil, errors.InvalidParam("smiles is required")
	}
	var resp stereotypes.MoleculeResponse
	req := stereotypes.MoleculeRequest{SMILES: smiles, IncludeUnassigned: includeUnassigned}
	if err := m.client.post(ctx, "/api/v1/molecules/centers", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Canonical returns the canonical SMILES and summary of smiles.
func (m *MoleculesClient) Canonical(ctx context.Context, smiles string) (*stereotypes.MoleculeResponse, error) {
	if smiles == "" {
		return nil, errors.InvalidParam("smiles is required")
	}
	var resp stereotypes.MoleculeResponse
	if err := m.client.post(ctx, "/api/v1/molecules/canonical", stereotypes.MoleculeRequest{SMILES: smiles}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
