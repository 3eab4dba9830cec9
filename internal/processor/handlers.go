package processor

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/cobuilders/cachemanager-indexer/internal/domain"
	"github.com/cobuilders/cachemanager-indexer/internal/indexererr"
	"github.com/cobuilders/cachemanager-indexer/internal/store"
)

// decayRateFor resolves the applicable decay rate for an event at
// (blockNumber, logIndex): the most recent SetDecayRate event at or before
// that position, falling back to the current BlockchainState snapshot,
// falling back to zero (spec §4.7a step 1).
func decayRateFor(ctx context.Context, st store.Store, chainID uuid.UUID, blockNumber uint64, logIndex uint) (*big.Int, error) {
	raw, ok, err := st.DecayRateBefore(ctx, chainID, blockNumber, logIndex)
	if err != nil {
		return nil, err
	}
	if ok {
		if rate, okParse := new(big.Int).SetString(raw, 10); okParse {
			return rate, nil
		}
	}
	snapshot, ok, err := st.Latest(ctx, chainID)
	if err != nil {
		return nil, err
	}
	if ok && snapshot.DecayRate != nil {
		return snapshot.DecayRate, nil
	}
	return big.NewInt(0), nil
}

// handleInsertBid implements spec §4.7a, the central computation: decay
// lookup, actual-bid math, then the Bytecode and Contract upserts.
func handleInsertBid(ctx context.Context, st store.Store, ev *domain.BlockchainEvent) error {
	parsed, err := parseInsertBid(ev.EventData)
	if err != nil {
		return err
	}

	decayRate, err := decayRateFor(ctx, st, ev.ChainID, ev.BlockNumber, ev.LogIndex)
	if err != nil {
		return indexererr.Wrap(indexererr.EventProcessingFailed, "resolve decay rate", err, fields(ev))
	}

	decayAmount := applicableDecayAmount(ev.BlockTimestamp.Unix(), decayRate)
	actual := actualBid(parsed.bidValue, decayAmount)

	if _, err := st.UpsertBytecodeForInsertBid(ctx, ev.ChainID, parsed.bytecodeHash, parsed.size,
		actual.String(), parsed.bidValue.String(), ev.BlockNumber, ev.BlockTimestamp.Unix()); err != nil {
		return indexererr.Wrap(indexererr.DatabaseOperationFailed, "upsert bytecode", err, fields(ev))
	}

	if _, err := st.UpsertContractForInsertBid(ctx, ev.ChainID, parsed.address, parsed.bytecodeHash, parsed.size,
		actual.String(), parsed.bidValue.String(), ev.BlockNumber, ev.BlockTimestamp.Unix()); err != nil {
		return indexererr.Wrap(indexererr.DatabaseOperationFailed, "upsert contract", err, fields(ev))
	}
	return nil
}

// handleDeleteBid implements spec §4.7b.
func handleDeleteBid(ctx context.Context, st store.Store, ev *domain.BlockchainEvent) error {
	parsed, err := parseDeleteBid(ev.EventData)
	if err != nil {
		return err
	}
	if _, err := st.ApplyDeleteBid(ctx, ev.ChainID, parsed.bytecodeHash, parsed.evictionBid.String()); err != nil {
		if indexererr.Is(err, indexererr.IntegrityViolation) {
			log.Warn("processor: DeleteBid without prior InsertBid", "chain", ev.ChainID, "tx", ev.TransactionHash, "logIndex", ev.LogIndex)
			return err
		}
		return indexererr.Wrap(indexererr.DatabaseOperationFailed, "apply delete bid", err, fields(ev))
	}
	return nil
}

// handleContractAdded implements spec §4.7c.
func handleContractAdded(ctx context.Context, st store.Store, ev *domain.BlockchainEvent) error {
	parsed, err := parseContractAdded(ev.EventData)
	if err != nil {
		return err
	}
	if _, err := st.ApplyContractAdded(ctx, ev.ChainID, parsed.address, parsed.maxBid.String(), ev.BlockNumber, ev.BlockTimestamp.Unix()); err != nil {
		if indexererr.Is(err, indexererr.IntegrityViolation) {
			log.Warn("processor: ContractAdded without prior Contract row", "chain", ev.ChainID, "tx", ev.TransactionHash, "logIndex", ev.LogIndex)
			return err
		}
		return indexererr.Wrap(indexererr.DatabaseOperationFailed, "apply contract added", err, fields(ev))
	}
	return nil
}

// handleContractUpdated implements spec §4.7d.
func handleContractUpdated(ctx context.Context, st store.Store, ev *domain.BlockchainEvent) error {
	parsed, err := parseContractUpdated(ev.EventData)
	if err != nil {
		return err
	}
	if _, err := st.ApplyContractUpdated(ctx, ev.ChainID, parsed.address, parsed.maxBid.String(), ev.BlockNumber, ev.BlockTimestamp.Unix()); err != nil {
		if indexererr.Is(err, indexererr.IntegrityViolation) {
			log.Warn("processor: ContractUpdated without prior Contract row", "chain", ev.ChainID, "tx", ev.TransactionHash, "logIndex", ev.LogIndex)
			return err
		}
		return indexererr.Wrap(indexererr.DatabaseOperationFailed, "apply contract updated", err, fields(ev))
	}
	return nil
}

func fields(ev *domain.BlockchainEvent) map[string]any {
	return map[string]any{
		"chain":       ev.ChainID.String(),
		"event":       ev.EventName,
		"tx":          ev.TransactionHash.Hex(),
		"logIndex":    ev.LogIndex,
		"blockNumber": ev.BlockNumber,
	}
}
