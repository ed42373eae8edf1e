package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/senyabanana/tender-service/internal/models"
)

var (
	_ TenderRepository = (*memoryTenders)(nil)
	_ BidRepository    = (*memoryBids)(nil)
	_ TxRunner         = (*MemoryStore)(nil)
)

// MemoryStore хранит тендеры и предложения в памяти процесса.
// Используется в тестах и при STORAGE_DRIVER=memory.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
}

type memoryState struct {
	tenders map[string]models.Tender
	deleted map[string]models.Tender
	bids    map[string]models.Bid
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memoryState{
		tenders: make(map[string]models.Tender),
		deleted: make(map[string]models.Tender),
		bids:    make(map[string]models.Bid),
	}}
}

// Tenders возвращает репозиторий тендеров вне транзакции.
func (s *MemoryStore) Tenders() TenderRepository {
	return &memoryTenders{s: s}
}

// Bids возвращает репозиторий предложений вне транзакции.
func (s *MemoryStore) Bids() BidRepository {
	return &memoryBids{s: s}
}

// Run выполняет fn под блокировкой хранилища и восстанавливает снимок при ошибке.
func (s *MemoryStore) Run(ctx context.Context, fn func(tenders TenderRepository, bids BidRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&memoryTenders{s: s, inTx: true}, &memoryBids{s: s, inTx: true}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) acquire(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (st memoryState) clone() memoryState {
	c := memoryState{
		tenders: make(map[string]models.Tender, len(st.tenders)),
		deleted: make(map[string]models.Tender, len(st.deleted)),
		bids:    make(map[string]models.Bid, len(st.bids)),
	}
	for k, v := range st.tenders {
		c.tenders[k] = v.Clone()
	}
	for k, v := range st.deleted {
		c.deleted[k] = v.Clone()
	}
	for k, v := range st.bids {
		c.bids[k] = v.Clone()
	}
	return c
}

type memoryTenders struct {
	s    *MemoryStore
	inTx bool
}

func (r *memoryTenders) GetTender(ctx context.Context, tenderId string) (*models.Tender, error) {
	defer r.s.acquire(r.inTx)()
	tender, ok := r.s.state.tenders[tenderId]
	if !ok {
		return nil, models.NewNotFoundError("tender", tenderId)
	}
	out := tender.Clone()
	return &out, nil
}

func (r *memoryTenders) CreateTender(ctx context.Context, tender *models.Tender) (*models.Tender, error) {
	defer r.s.acquire(r.inTx)()
	if _, ok := r.s.state.tenders[tender.ID]; ok {
		return nil, models.NewConflictError(fmt.Sprintf("tender %s already exists", tender.ID), nil)
	}
	for _, existing := range r.s.allTenders() {
		if existing.TenderNumber == tender.TenderNumber {
			return nil, models.NewConflictError(fmt.Sprintf("tender number %s already exists", tender.TenderNumber), nil)
		}
	}
	stored := tender.Clone()
	stored.Attachments = attachmentsOrEmpty(stored.Attachments)
	r.s.state.tenders[stored.ID] = stored
	out := stored.Clone()
	return &out, nil
}

func (r *memoryTenders) UpdateTender(ctx context.Context, tender *models.Tender, expectedVersion int32) (*models.Tender, error) {
	defer r.s.acquire(r.inTx)()
	current, ok := r.s.state.tenders[tender.ID]
	if !ok {
		return nil, models.NewNotFoundError("tender", tender.ID)
	}
	if current.Version != expectedVersion {
		snapshot := current.Clone()
		return nil, models.NewConflictError(
			fmt.Sprintf("tender %s was modified concurrently, current version is %d", tender.ID, current.Version), &snapshot)
	}
	stored := tender.Clone()
	stored.TenderNumber = current.TenderNumber
	stored.CreatedAt = current.CreatedAt
	stored.Attachments = attachmentsOrEmpty(stored.Attachments)
	stored.Version = current.Version + 1
	r.s.state.tenders[stored.ID] = stored
	out := stored.Clone()
	return &out, nil
}

func (r *memoryTenders) DeleteTender(ctx context.Context, tenderId string, expectedVersion int32) error {
	defer r.s.acquire(r.inTx)()
	current, ok := r.s.state.tenders[tenderId]
	if !ok {
		return models.NewNotFoundError("tender", tenderId)
	}
	if current.Version != expectedVersion {
		snapshot := current.Clone()
		return models.NewConflictError(
			fmt.Sprintf("tender %s was modified concurrently, current version is %d", tenderId, current.Version), &snapshot)
	}
	current.Version++
	delete(r.s.state.tenders, tenderId)
	r.s.state.deleted[tenderId] = current
	return nil
}

func (r *memoryTenders) ListTenders(ctx context.Context, filter models.TenderFilter) ([]models.Tender, error) {
	defer r.s.acquire(r.inTx)()
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	var tenders []models.Tender
	for _, t := range r.s.state.tenders {
		if len(filter.Categories) > 0 && !contains(filter.Categories, t.Category) {
			continue
		}
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, t.Status) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		if filter.DeadlineBefore != nil && (t.SubmissionDeadline == nil || !t.SubmissionDeadline.Before(*filter.DeadlineBefore)) {
			continue
		}
		tenders = append(tenders, t.Clone())
	}

	sortTenders(tenders, filter.Sort)

	if filter.Offset > 0 {
		if filter.Offset >= len(tenders) {
			return nil, nil
		}
		tenders = tenders[filter.Offset:]
	}
	if filter.Limit > 0 && len(tenders) > filter.Limit {
		tenders = tenders[:filter.Limit]
	}
	return tenders, nil
}

func (s *MemoryStore) allTenders() []models.Tender {
	all := make([]models.Tender, 0, len(s.state.tenders)+len(s.state.deleted))
	for _, t := range s.state.tenders {
		all = append(all, t)
	}
	for _, t := range s.state.deleted {
		all = append(all, t)
	}
	return all
}

func sortTenders(tenders []models.Tender, order models.TenderSort) {
	sort.SliceStable(tenders, func(i, j int) bool {
		a, b := tenders[i], tenders[j]
		switch order {
		case models.SortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case models.SortAlphabetical:
			at, bt := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if at != bt {
				return at < bt
			}
		case models.SortDeadline:
			switch {
			case a.SubmissionDeadline == nil && b.SubmissionDeadline != nil:
				return false
			case a.SubmissionDeadline != nil && b.SubmissionDeadline == nil:
				return true
			case a.SubmissionDeadline != nil && !a.SubmissionDeadline.Equal(*b.SubmissionDeadline):
				return a.SubmissionDeadline.Before(*b.SubmissionDeadline)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
}

type memoryBids struct {
	s    *MemoryStore
	inTx bool
}

func (r *memoryBids) GetBid(ctx context.Context, bidId string) (*models.Bid, error) {
	defer r.s.acquire(r.inTx)()
	bid, ok := r.s.state.bids[bidId]
	if !ok {
		return nil, models.NewNotFoundError("bid", bidId)
	}
	out := bid.Clone()
	return &out, nil
}

func (r *memoryBids) CreateBid(ctx context.Context, bid *models.Bid) (*models.Bid, error) {
	defer r.s.acquire(r.inTx)()
	tender, ok := r.s.state.tenders[bid.TenderID]
	if !ok || tender.Status != models.ActiveTender {
		return nil, models.NewConflictError(fmt.Sprintf("tender %s is not accepting bids", bid.TenderID), nil)
	}
	if bid.Status == models.SubmittedBid && r.hasSubmitted(bid.TenderID, bid.VendorID, bid.ID) {
		return nil, models.NewConflictError(
			fmt.Sprintf("vendor %s already has a submitted bid for tender %s", bid.VendorID, bid.TenderID), nil)
	}
	stored := bid.Clone()
	stored.ScoreHistory = historyOrEmpty(stored.ScoreHistory)
	r.s.state.bids[stored.ID] = stored
	out := stored.Clone()
	return &out, nil
}

func (r *memoryBids) UpdateBid(ctx context.Context, bid *models.Bid, expectedVersion int32) (*models.Bid, error) {
	defer r.s.acquire(r.inTx)()
	current, ok := r.s.state.bids[bid.ID]
	if !ok {
		return nil, models.NewNotFoundError("bid", bid.ID)
	}
	if current.Version != expectedVersion {
		return nil, models.NewConflictError(
			fmt.Sprintf("bid %s was modified concurrently, current version is %d", bid.ID, current.Version), nil)
	}
	if bid.Status == models.SubmittedBid && r.hasSubmitted(current.TenderID, current.VendorID, current.ID) {
		return nil, models.NewConflictError(
			fmt.Sprintf("vendor %s already has a submitted bid for tender %s", current.VendorID, current.TenderID), nil)
	}
	stored := bid.Clone()
	stored.TenderID = current.TenderID
	stored.VendorID = current.VendorID
	stored.VendorName = current.VendorName
	stored.BidAmount = current.BidAmount
	stored.SubmittedAt = current.SubmittedAt
	stored.ScoreHistory = historyOrEmpty(stored.ScoreHistory)
	stored.Version = current.Version + 1
	r.s.state.bids[stored.ID] = stored
	out := stored.Clone()
	return &out, nil
}

func (r *memoryBids) ListTenderBids(ctx context.Context, tenderId string) ([]models.Bid, error) {
	defer r.s.acquire(r.inTx)()
	bids := r.filter(func(b models.Bid) bool { return b.TenderID == tenderId })
	sort.SliceStable(bids, func(i, j int) bool {
		if !bids[i].SubmittedAt.Equal(bids[j].SubmittedAt) {
			return bids[i].SubmittedAt.Before(bids[j].SubmittedAt)
		}
		return bids[i].ID < bids[j].ID
	})
	return bids, nil
}

func (r *memoryBids) ListVendorBids(ctx context.Context, vendorId string) ([]models.Bid, error) {
	defer r.s.acquire(r.inTx)()
	bids := r.filter(func(b models.Bid) bool { return b.VendorID == vendorId })
	sort.SliceStable(bids, func(i, j int) bool {
		if !bids[i].SubmittedAt.Equal(bids[j].SubmittedAt) {
			return bids[i].SubmittedAt.After(bids[j].SubmittedAt)
		}
		return bids[i].ID < bids[j].ID
	})
	return bids, nil
}

func (r *memoryBids) filter(keep func(models.Bid) bool) []models.Bid {
	var bids []models.Bid
	for _, b := range r.s.state.bids {
		if keep(b) {
			bids = append(bids, b.Clone())
		}
	}
	return bids
}

func (r *memoryBids) hasSubmitted(tenderId, vendorId, exceptId string) bool {
	for _, b := range r.s.state.bids {
		if b.ID != exceptId && b.TenderID == tenderId && b.VendorID == vendorId && b.Status == models.SubmittedBid {
			return true
		}
	}
	return false
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
