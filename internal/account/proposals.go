// ABOUTME: Recovery proposal table keyed by proposer and action selector
// ABOUTME: Tracks proposer and approver backups until execution or cancellation

package account

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ProposalKey identifies a proposal within its client account.
type ProposalKey struct {
	Proposer common.Address
	Selector Selector
}

// Proposal is a pending recovery action for the owning (client) account.
type Proposal struct {
	ProposalKey
	DataHash       common.Hash
	ProposerBackup common.Address
	ApproverBackup common.Address
	CreatedAt      time.Time
}

// Approved reports whether a second backup has approved the proposal.
func (p Proposal) Approved() bool {
	return p.ApproverBackup != (common.Address{})
}

// Proposal returns the entry stored under key.
func (a *Account) Proposal(key ProposalKey) (Proposal, bool) {
	p, ok := a.Proposals[key]
	return p, ok
}

// PutProposal stores p, replacing any entry under the same key.
func (a *Account) PutProposal(p Proposal) {
	if a.Proposals == nil {
		a.Proposals = make(map[ProposalKey]Proposal)
	}
	a.Proposals[p.ProposalKey] = p
}

// ApproveProposal records approver on the proposal under key.
func (a *Account) ApproveProposal(key ProposalKey, hash common.Hash, approver common.Address) error {
	p, ok := a.Proposals[key]
	if !ok {
		return fmt.Errorf("%w: proposal %s/%s", ErrNoPendingOperation, key.Proposer.Hex(), key.Selector)
	}
	if p.DataHash != hash {
		return fmt.Errorf("%w: proposal %s/%s", ErrHashMismatch, key.Proposer.Hex(), key.Selector)
	}
	if approver == p.ProposerBackup {
		return ErrSelfApproval
	}
	if p.Approved() {
		return fmt.Errorf("%w: proposal already approved by %s", ErrDuplicatePendingOperation, p.ApproverBackup.Hex())
	}
	p.ApproverBackup = approver
	a.Proposals[key] = p
	return nil
}

// TakeProposal removes and returns an approved proposal whose hash matches.
func (a *Account) TakeProposal(key ProposalKey, hash common.Hash) (Proposal, error) {
	p, ok := a.Proposals[key]
	if !ok {
		return Proposal{}, fmt.Errorf("%w: proposal %s/%s", ErrNoPendingOperation, key.Proposer.Hex(), key.Selector)
	}
	if p.DataHash != hash {
		return Proposal{}, fmt.Errorf("%w: proposal %s/%s", ErrHashMismatch, key.Proposer.Hex(), key.Selector)
	}
	if !p.Approved() {
		return Proposal{}, ErrProposalNotApproved
	}
	delete(a.Proposals, key)
	return p, nil
}

// CancelProposal drops the entry under key, approved or not.
func (a *Account) CancelProposal(key ProposalKey) error {
	if _, ok := a.Proposals[key]; !ok {
		return fmt.Errorf("%w: proposal %s/%s", ErrNoPendingOperation, key.Proposer.Hex(), key.Selector)
	}
	delete(a.Proposals, key)
	return nil
}

// ClearProposals drops every proposal for any of sels and returns how many were removed.
func (a *Account) ClearProposals(sels ...Selector) int {
	n := 0
	for key := range a.Proposals {
		for _, s := range sels {
			if key.Selector == s {
				delete(a.Proposals, key)
				n++
				break
			}
		}
	}
	return n
}
