// ABOUTME: Recovery controller for the backup lifecycle and the proposal protocol
// ABOUTME: Proposals need two distinct effective backups before anyone can execute them

package logic

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/2389/keyward/internal/account"
	"github.com/2389/keyward/internal/action"
)

// Actions a single backup may propose. Execution arms a timelock.
var backupProposable = map[account.Selector]bool{
	action.SelChangeAdminKeyByBackup: true,
}

// Actions the client and a backup may propose together. Execution applies
// them immediately.
var dualProposable = map[account.Selector]bool{
	action.SelChangeAdminKeyWithoutDelay: true,
}

// proposableBy returns the allow-list for proposals keyed under proposer.
// The client itself only appears as proposer for dual proposals.
func proposableBy(client, proposer common.Address) map[account.Selector]bool {
	if proposer == client {
		return dualProposable
	}
	return backupProposable
}

// ClientNonceOptional reports whether the client signature on act may omit
// its nonce. Only a dual proposal of a delay-exempt action qualifies.
func ClientNonceOptional(act action.Action) bool {
	pb, ok := act.(action.ProposeByBoth)
	if !ok {
		return false
	}
	inner, err := action.Decode(pb.FunctionData)
	if err != nil {
		return false
	}
	return dualProposable[inner.Selector()]
}

// decodeProposal parses proposed call data and checks it against allowed.
func decodeProposal(client common.Address, data []byte, allowed map[account.Selector]bool) (action.Action, error) {
	inner, err := action.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", account.ErrInvalidProposalAction, err)
	}
	if !allowed[inner.Selector()] {
		return nil, fmt.Errorf("%w: %s", account.ErrInvalidProposalAction, inner.Method())
	}
	if inner.Target() != client {
		return nil, fmt.Errorf("%w: proposal targets %s, not %s", account.ErrInvalidAccount, inner.Target().Hex(), client.Hex())
	}
	return inner, nil
}

func addBackup(s *Session, a action.AddBackup) error {
	acct, err := s.Edit(a.Account)
	if err != nil {
		return err
	}
	p := s.Params()
	return acct.AddBackup(a.Backup, s.Now(), p.BackupAddDelay, p.MaxBackups)
}

func removeBackup(s *Session, a action.RemoveBackup) error {
	acct, err := s.Edit(a.Account)
	if err != nil {
		return err
	}
	return acct.RemoveBackup(a.Backup, s.Now(), s.Params().BackupRemoveDelay)
}

func cancelRemoveBackup(s *Session, a action.CancelRemoveBackup) error {
	acct, err := s.Edit(a.Account)
	if err != nil {
		return err
	}
	return acct.CancelRemoveBackup(a.Backup, s.Now())
}

func proposeAsBackup(s *Session, a action.ProposeAsBackup) error {
	return propose(s, a.Client, a.Backup, a.Backup, a.FunctionData)
}

func proposeByBoth(s *Session, a action.ProposeByBoth) error {
	return propose(s, a.Client, a.Client, a.Backup, a.FunctionData)
}

// propose stores a proposal under (proposer, selector), replacing any
// earlier one together with its approval.
func propose(s *Session, client, proposer, proposerBackup common.Address, data []byte) error {
	acct, err := s.Edit(client)
	if err != nil {
		return err
	}
	if err := acct.CheckBackup(proposerBackup, s.Now()); err != nil {
		return err
	}
	inner, err := decodeProposal(client, data, proposableBy(client, proposer))
	if err != nil {
		return err
	}
	acct.PutProposal(account.Proposal{
		ProposalKey:    account.ProposalKey{Proposer: proposer, Selector: inner.Selector()},
		DataHash:       action.Hash(data),
		ProposerBackup: proposerBackup,
		CreatedAt:      s.Now(),
	})
	return nil
}

func approveProposal(s *Session, a action.ApproveProposal) error {
	acct, err := s.Edit(a.Client)
	if err != nil {
		return err
	}
	now := s.Now()
	if err := acct.CheckBackup(a.Backup, now); err != nil {
		return err
	}
	inner, err := decodeProposal(a.Client, a.FunctionData, proposableBy(a.Client, a.Proposer))
	if err != nil {
		return err
	}
	key := account.ProposalKey{Proposer: a.Proposer, Selector: inner.Selector()}
	if p, ok := acct.Proposal(key); ok {
		if err := acct.CheckBackup(p.ProposerBackup, now); err != nil {
			return fmt.Errorf("proposer backup: %w", err)
		}
	}
	return acct.ApproveProposal(key, action.Hash(a.FunctionData), a.Backup)
}

func cancelProposal(s *Session, a action.CancelProposal) error {
	acct, err := s.Edit(a.Client)
	if err != nil {
		return err
	}
	return acct.CancelProposal(account.ProposalKey{Proposer: a.Proposer, Selector: a.ActionID})
}

// ExecuteProposal runs an approved proposal and returns the proposed action.
// It needs no signature: the stored hash and approval already authorize it.
func ExecuteProposal(s *Session, client, proposer common.Address, data []byte) (action.Action, error) {
	acct, err := s.Edit(client)
	if err != nil {
		return nil, err
	}
	inner, err := decodeProposal(client, data, proposableBy(client, proposer))
	if err != nil {
		return nil, err
	}
	key := account.ProposalKey{Proposer: proposer, Selector: inner.Selector()}
	if _, err := acct.TakeProposal(key, action.Hash(data)); err != nil {
		return nil, err
	}

	switch a := inner.(type) {
	case action.ChangeAdminKeyWithoutDelay:
		return inner, changeAdmin(acct, a.PkNew)
	case action.ChangeAdminKeyByBackup:
		if err := acct.CheckAdminCandidate(a.PkNew); err != nil {
			return nil, err
		}
		return inner, Arm(s, acct, a)
	default:
		return nil, fmt.Errorf("%w: %s", account.ErrInvalidProposalAction, inner.Method())
	}
}
