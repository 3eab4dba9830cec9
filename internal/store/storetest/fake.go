// Package storetest provides an in-memory store.Store used by unit tests
// across internal/processor, internal/bootstrap and internal/poller, in
// place of a live Postgres instance.
package storetest

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/cobuilders/cachemanager-indexer/internal/domain"
	"github.com/cobuilders/cachemanager-indexer/internal/indexererr"
	"github.com/cobuilders/cachemanager-indexer/internal/store"
)

func unixTime(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// Fake is a goroutine-safe, in-memory store.Store.
type Fake struct {
	mu sync.Mutex

	chains    map[uuid.UUID]*domain.Chain
	events    map[uuid.UUID][]*domain.BlockchainEvent
	byKey     map[domain.Key]*domain.BlockchainEvent
	states    map[uuid.UUID][]*domain.BlockchainState
	bytecodes map[uuid.UUID]map[[32]byte]*domain.Bytecode
	contracts map[uuid.UUID]map[[20]byte]*domain.Contract
}

// New builds an empty Fake.
func New() *Fake {
	return &Fake{
		chains:    make(map[uuid.UUID]*domain.Chain),
		events:    make(map[uuid.UUID][]*domain.BlockchainEvent),
		byKey:     make(map[domain.Key]*domain.BlockchainEvent),
		states:    make(map[uuid.UUID][]*domain.BlockchainState),
		bytecodes: make(map[uuid.UUID]map[[32]byte]*domain.Bytecode),
		contracts: make(map[uuid.UUID]map[[20]byte]*domain.Contract),
	}
}

var _ store.Store = (*Fake)(nil)

// --- Chains ---

func (f *Fake) Get(_ context.Context, id uuid.UUID) (*domain.Chain, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chains[id]
	return c, ok, nil
}

func (f *Fake) FindByChainIDAndRPCURL(_ context.Context, chainID uint64, rpcURL string) (*domain.Chain, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.chains {
		if c.ChainID == chainID && c.RPCURL == rpcURL {
			return c, true, nil
		}
	}
	return nil, false, nil
}

func (f *Fake) Insert(_ context.Context, c *domain.Chain) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	f.chains[c.ID] = &cp
	return nil
}

func (f *Fake) List(_ context.Context) ([]*domain.Chain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Chain, 0, len(f.chains))
	for _, c := range f.chains {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *Fake) GetLastSyncedBlock(_ context.Context, chainID uuid.UUID) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.chains[chainID]; ok {
		return c.LastSyncedBlock, nil
	}
	return 0, nil
}

func (f *Fake) UpdateLastSyncedBlock(_ context.Context, chainID uuid.UUID, n uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.chains[chainID]; ok && n >= c.LastSyncedBlock {
		c.LastSyncedBlock = n
	}
	return nil
}

func (f *Fake) GetLastProcessedBlock(_ context.Context, chainID uuid.UUID) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.chains[chainID]; ok {
		return c.LastProcessedBlockNumber, nil
	}
	return 0, nil
}

func (f *Fake) UpdateLastProcessedBlock(_ context.Context, chainID uuid.UUID, n uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.chains[chainID]; ok && n >= c.LastProcessedBlockNumber {
		c.LastProcessedBlockNumber = n
	}
	return nil
}

// --- Events ---

func (f *Fake) StoreEvents(_ context.Context, records []*domain.BlockchainEvent) (store.StoreResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	res := store.StoreResult{TotalEvents: len(records)}
	for _, rec := range records {
		key := rec.Key()
		if existing, ok := f.byKey[key]; ok {
			if rec.IsRealTime {
				existing.IsRealTime = true
			}
			res.SuccessCount++
			continue
		}
		cp := *rec
		if cp.ID == uuid.Nil {
			cp.ID = uuid.New()
		}
		f.byKey[key] = &cp
		f.events[rec.ChainID] = append(f.events[rec.ChainID], &cp)
		sort.Slice(f.events[rec.ChainID], func(i, j int) bool {
			a, b := f.events[rec.ChainID][i], f.events[rec.ChainID][j]
			if a.BlockNumber != b.BlockNumber {
				return a.BlockNumber < b.BlockNumber
			}
			return a.LogIndex < b.LogIndex
		})
		res.SuccessCount++
	}
	return res, nil
}

func (f *Fake) StreamAfter(_ context.Context, chainID uuid.UUID, afterBlock uint64, afterLogIndex uint, limit int) ([]*domain.BlockchainEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*domain.BlockchainEvent
	for _, ev := range f.events[chainID] {
		if ev.BlockNumber < afterBlock || (ev.BlockNumber == afterBlock && ev.LogIndex <= afterLogIndex) {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *Fake) ExistsByKey(_ context.Context, key domain.Key) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byKey[key]
	return ok, nil
}

func (f *Fake) DecayRateBefore(_ context.Context, chainID uuid.UUID, blockNumber uint64, logIndex uint) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var best *domain.BlockchainEvent
	for _, ev := range f.events[chainID] {
		if ev.EventName != "SetDecayRate" {
			continue
		}
		if ev.BlockNumber > blockNumber || (ev.BlockNumber == blockNumber && ev.LogIndex > logIndex) {
			continue
		}
		if best == nil || ev.BlockNumber > best.BlockNumber || (ev.BlockNumber == best.BlockNumber && ev.LogIndex > best.LogIndex) {
			best = ev
		}
	}
	if best == nil || len(best.EventData) == 0 {
		return "", false, nil
	}
	return best.EventData[0].Value, true, nil
}

// --- State ---

func (f *Fake) InsertSnapshot(_ context.Context, s *domain.BlockchainState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.states[s.ChainID] = append(f.states[s.ChainID], &cp)
	return nil
}

func (f *Fake) Latest(_ context.Context, chainID uuid.UUID) (*domain.BlockchainState, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.states[chainID]
	if len(list) == 0 {
		return nil, false, nil
	}
	latest := list[0]
	for _, s := range list[1:] {
		if s.BlockNumber > latest.BlockNumber {
			latest = s
		}
	}
	return latest, true, nil
}

// --- Derived ---

func (f *Fake) bytecodeRow(chainID uuid.UUID, hash [32]byte) *domain.Bytecode {
	if f.bytecodes[chainID] == nil {
		f.bytecodes[chainID] = make(map[[32]byte]*domain.Bytecode)
	}
	return f.bytecodes[chainID][hash]
}

func (f *Fake) UpsertBytecodeForInsertBid(_ context.Context, chainID uuid.UUID, hash [32]byte, size uint64, actualBid, rawBid string, blockNumber uint64, blockTimestampUnix int64) (*domain.Bytecode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	actual, _ := new(big.Int).SetString(actualBid, 10)
	raw, _ := new(big.Int).SetString(rawBid, 10)

	bc := f.bytecodeRow(chainID, hash)
	if bc == nil {
		bc = &domain.Bytecode{
			ChainID:            chainID,
			BytecodeHash:       hash,
			Size:               size,
			IsCached:           true,
			LastBid:            new(big.Int).Set(actual),
			BidPlusDecay:       new(big.Int).Set(raw),
			TotalBidInvestment: new(big.Int).Set(actual),
			BidBlockNumber:     blockNumber,
			BidBlockTimestamp:  unixTime(blockTimestampUnix),
		}
	} else {
		bc.Size = size
		bc.IsCached = true
		bc.LastBid = new(big.Int).Set(actual)
		bc.BidPlusDecay = new(big.Int).Set(raw)
		bc.TotalBidInvestment = new(big.Int).Add(bc.TotalBidInvestment, actual)
		bc.BidBlockNumber = blockNumber
		bc.BidBlockTimestamp = unixTime(blockTimestampUnix)
	}
	f.bytecodes[chainID][hash] = bc
	cp := *bc
	return &cp, nil
}

func (f *Fake) ApplyDeleteBid(_ context.Context, chainID uuid.UUID, hash [32]byte, evictionBid string) (*domain.Bytecode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bc := f.bytecodeRow(chainID, hash)
	if bc == nil {
		return nil, indexererr.New(indexererr.IntegrityViolation, "DeleteBid without prior Bytecode row", map[string]any{
			"chain": chainID.String(), "bytecodeHash": common.Hash(hash).Hex(),
		})
	}
	bc.IsCached = false
	bc.LastEvictionBid, _ = new(big.Int).SetString(evictionBid, 10)
	cp := *bc
	return &cp, nil
}

func (f *Fake) GetBytecode(_ context.Context, chainID uuid.UUID, hash [32]byte) (*domain.Bytecode, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bc := f.bytecodeRow(chainID, hash)
	if bc == nil {
		return nil, false, nil
	}
	cp := *bc
	return &cp, true, nil
}

func (f *Fake) contractRow(chainID uuid.UUID, addr [20]byte) *domain.Contract {
	if f.contracts[chainID] == nil {
		f.contracts[chainID] = make(map[[20]byte]*domain.Contract)
	}
	return f.contracts[chainID][addr]
}

func (f *Fake) UpsertContractForInsertBid(_ context.Context, chainID uuid.UUID, address [20]byte, bytecodeHash [32]byte, size uint64, actualBid, rawBid string, blockNumber uint64, blockTimestampUnix int64) (*domain.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	actual, _ := new(big.Int).SetString(actualBid, 10)
	raw, _ := new(big.Int).SetString(rawBid, 10)

	c := f.contractRow(chainID, address)
	if c == nil {
		c = &domain.Contract{
			ChainID:            chainID,
			Address:            address,
			BytecodeHash:       bytecodeHash,
			Size:               size,
			IsCached:           true,
			LastBid:            new(big.Int).Set(actual),
			BidPlusDecay:       new(big.Int).Set(raw),
			TotalBidInvestment: new(big.Int).Set(actual),
			BidBlockNumber:     blockNumber,
			BidBlockTimestamp:  unixTime(blockTimestampUnix),
		}
	} else {
		c.BytecodeHash = bytecodeHash
		c.Size = size
		c.IsCached = true
		c.LastBid = new(big.Int).Set(actual)
		c.BidPlusDecay = new(big.Int).Set(raw)
		c.TotalBidInvestment = new(big.Int).Add(c.TotalBidInvestment, actual)
		c.BidBlockNumber = blockNumber
		c.BidBlockTimestamp = unixTime(blockTimestampUnix)
	}
	f.contracts[chainID][address] = c
	cp := *c
	return &cp, nil
}

func (f *Fake) ApplyContractAdded(_ context.Context, chainID uuid.UUID, address [20]byte, maxBid string, blockNumber uint64, blockTimestampUnix int64) (*domain.Contract, error) {
	return f.updateAutomation(chainID, address, maxBid, blockNumber, blockTimestampUnix, true)
}

func (f *Fake) ApplyContractUpdated(_ context.Context, chainID uuid.UUID, address [20]byte, maxBid string, blockNumber uint64, blockTimestampUnix int64) (*domain.Contract, error) {
	return f.updateAutomation(chainID, address, maxBid, blockNumber, blockTimestampUnix, false)
}

func (f *Fake) updateAutomation(chainID uuid.UUID, address [20]byte, maxBid string, blockNumber uint64, blockTimestampUnix int64, setAutomated bool) (*domain.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := f.contractRow(chainID, address)
	if c == nil {
		return nil, indexererr.New(indexererr.IntegrityViolation, "automation event without prior Contract row", map[string]any{
			"chain": chainID.String(), "address": common.Address(address).Hex(),
		})
	}
	c.MaxBid, _ = new(big.Int).SetString(maxBid, 10)
	c.BidBlockNumber = blockNumber
	c.BidBlockTimestamp = unixTime(blockTimestampUnix)
	if setAutomated {
		c.IsAutomated = true
	}
	cp := *c
	return &cp, nil
}

func (f *Fake) GetContract(_ context.Context, chainID uuid.UUID, address [20]byte) (*domain.Contract, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.contractRow(chainID, address)
	if c == nil {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}
