package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/janiosantos/siscom-settlement/pkg/models"
)

// Memory is an in-process Store. A single mutex serializes every
// mutation, which gives CreateMatch its required atomicity: the
// uniqueness checks and the reconciled-flag flip happen under one lock.
type Memory struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]models.BankAccountProfile
	slips    map[uuid.UUID]models.BankSlip
	pix      map[uuid.UUID]models.PixTransfer
	lines    map[uuid.UUID]models.StatementLine
	matches  map[uuid.UUID]models.ReconciliationMatch

	counters       map[uuid.UUID]int64     // next nosso número per profile
	matchedTargets map[uuid.UUID]uuid.UUID // target id -> match id
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		profiles:       make(map[uuid.UUID]models.BankAccountProfile),
		slips:          make(map[uuid.UUID]models.BankSlip),
		pix:            make(map[uuid.UUID]models.PixTransfer),
		lines:          make(map[uuid.UUID]models.StatementLine),
		matches:        make(map[uuid.UUID]models.ReconciliationMatch),
		counters:       make(map[uuid.UUID]int64),
		matchedTargets: make(map[uuid.UUID]uuid.UUID),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) SaveProfile(_ context.Context, p *models.BankAccountProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.profiles[p.ID]; exists {
		for _, s := range m.slips {
			if s.ProfileID == p.ID {
				return ErrProfileImmutable
			}
		}
	}
	m.profiles[p.ID] = *p
	return nil
}

func (m *Memory) ProfileByID(_ context.Context, id uuid.UUID) (*models.BankAccountProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) NextNossoNumero(_ context.Context, profileID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[profileID]; !ok {
		return 0, ErrNotFound
	}
	m.counters[profileID]++
	return m.counters[profileID], nil
}

func (m *Memory) SaveBankSlip(_ context.Context, s *models.BankSlip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slips[s.ID] = *s
	return nil
}

func (m *Memory) BankSlipByID(_ context.Context, id uuid.UUID) (*models.BankSlip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slips[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Memory) BankSlipByNossoNumero(_ context.Context, scope models.Scope, nossoNumero string) (*models.BankSlip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slips {
		if s.NossoNumero == nossoNumero && m.slipInScope(s, scope) {
			out := s
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) BankSlipByNossoNumeroSuffix(_ context.Context, scope models.Scope, fragment string) (*models.BankSlip, error) {
	if fragment == "" {
		return nil, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// The narrowed number is the canonical one's least significant
	// digits, so only a suffix is a candidate. Collecting every hit
	// keeps the result independent of map iteration order.
	var found []models.BankSlip
	for _, s := range m.slips {
		if strings.HasSuffix(s.NossoNumero, fragment) && m.slipInScope(s, scope) {
			found = append(found, s)
		}
	}
	switch len(found) {
	case 0:
		return nil, ErrNotFound
	case 1:
		out := found[0]
		return &out, nil
	default:
		return nil, ErrAmbiguousNossoNumero
	}
}

// slipInScope reports whether the slip's profile settles under scope.
// The zero scope matches everything. Callers hold mu.
func (m *Memory) slipInScope(s models.BankSlip, scope models.Scope) bool {
	if scope == (models.Scope{}) {
		return true
	}
	p, ok := m.profiles[s.ProfileID]
	if !ok {
		return false
	}
	return p.Scope() == scope
}

func (m *Memory) UpdateBankSlipStatus(_ context.Context, id uuid.UUID, status models.SlipStatus, paidValue decimal.Decimal, paidDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slips[id]
	if !ok {
		return ErrNotFound
	}
	if !s.Status.CanTransitionTo(status) {
		return ErrInvalidTransition
	}
	s.Status = status
	if status == models.SlipPaid {
		s.PaidValue = paidValue
		s.PaidDate = paidDate
	}
	m.slips[id] = s
	return nil
}

func (m *Memory) ListBankSlips(_ context.Context, profileID uuid.UUID, from, to time.Time) ([]*models.BankSlip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.BankSlip
	for _, s := range m.slips {
		if s.ProfileID != profileID {
			continue
		}
		if !from.IsZero() && s.IssueDate.Before(from) {
			continue
		}
		if !to.IsZero() && s.IssueDate.After(to) {
			continue
		}
		slip := s
		out = append(out, &slip)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssueDate.Equal(out[j].IssueDate) {
			return out[i].IssueDate.Before(out[j].IssueDate)
		}
		return out[i].NossoNumero < out[j].NossoNumero
	})
	return out, nil
}

func (m *Memory) SavePixTransfer(_ context.Context, t *models.PixTransfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pix[t.ID] = *t
	return nil
}

func (m *Memory) PixTransferByID(_ context.Context, id uuid.UUID) (*models.PixTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.pix[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *Memory) PixTransferByE2E(_ context.Context, endToEnd string) (*models.PixTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.pix {
		if t.EndToEnd == endToEnd {
			out := t
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) SaveStatementLine(_ context.Context, l *models.StatementLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[l.ID] = *l
	return nil
}

func (m *Memory) StatementLineByID(_ context.Context, id uuid.UUID) (*models.StatementLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lines[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (m *Memory) ListStatementLines(_ context.Context, scope models.Scope, from, to time.Time) ([]*models.StatementLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collectLines(scope, from, to, false), nil
}

func (m *Memory) ListUnreconciled(_ context.Context, scope models.Scope, from, to time.Time) ([]*models.StatementLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collectLines(scope, from, to, true), nil
}

// collectLines returns lines in scope and range ordered by date then id,
// so repeated runs process candidates in the same order. Callers hold mu.
func (m *Memory) collectLines(scope models.Scope, from, to time.Time, pendingOnly bool) []*models.StatementLine {
	var out []*models.StatementLine
	for _, l := range m.lines {
		if l.Scope != scope {
			continue
		}
		if pendingOnly && l.Reconciled {
			continue
		}
		if !from.IsZero() && l.Date.Before(from) {
			continue
		}
		if !to.IsZero() && l.Date.After(to) {
			continue
		}
		line := l
		out = append(out, &line)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (m *Memory) CreateMatch(_ context.Context, match *models.ReconciliationMatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	line, ok := m.lines[match.LineID]
	if !ok {
		return ErrNotFound
	}
	if line.Reconciled {
		return ErrLineReconciled
	}
	if _, taken := m.matchedTargets[match.TargetID]; taken {
		return ErrTargetMatched
	}

	m.matches[match.ID] = *match
	m.matchedTargets[match.TargetID] = match.ID
	line.Reconciled = true
	line.MatchID = match.ID
	m.lines[match.LineID] = line
	return nil
}
