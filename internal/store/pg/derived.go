package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cobuilders/cachemanager-indexer/internal/domain"
	"github.com/cobuilders/cachemanager-indexer/internal/indexererr"
)

// UpsertBytecodeForInsertBid implements spec §4.7a's bytecode-row effects:
// insert creates the row with totalBidInvestment = actualBid; update sets
// lastBid/bidPlusDecay to the new values and adds actualBid to the running
// total. lastEvictionBid is left untouched either way.
func (s *Store) UpsertBytecodeForInsertBid(ctx context.Context, chainID uuid.UUID, hash [32]byte, size uint64, actualBid, rawBid string, blockNumber uint64, blockTimestampUnix int64) (*domain.Bytecode, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO bytecode (
			chain_id, bytecode_hash, size, is_cached, last_bid, bid_plus_decay,
			last_eviction_bid, total_bid_investment, bid_block_number, bid_block_timestamp
		) VALUES ($1,$2,$3,TRUE,$4,$5,NULL,$4,$6,$7)
		ON CONFLICT (chain_id, bytecode_hash) DO UPDATE SET
			size = EXCLUDED.size,
			is_cached = TRUE,
			last_bid = EXCLUDED.last_bid,
			bid_plus_decay = EXCLUDED.bid_plus_decay,
			total_bid_investment = bytecode.total_bid_investment + EXCLUDED.last_bid,
			bid_block_number = EXCLUDED.bid_block_number,
			bid_block_timestamp = EXCLUDED.bid_block_timestamp
		RETURNING chain_id, bytecode_hash, size, is_cached, last_bid::text,
		          bid_plus_decay::text, last_eviction_bid::text, total_bid_investment::text,
		          bid_block_number, bid_block_timestamp`,
		chainID, common.Hash(hash).Hex(), size, actualBid, rawBid,
		blockNumber, time.Unix(blockTimestampUnix, 0).UTC(),
	)
	return scanBytecode(row)
}

// ApplyDeleteBid implements spec §4.7b: requires an existing row, sets
// isCached=false and lastEvictionBid, and leaves every bid-math field
// (lastBid, bidPlusDecay, totalBidInvestment, size) untouched.
func (s *Store) ApplyDeleteBid(ctx context.Context, chainID uuid.UUID, hash [32]byte, evictionBid string) (*domain.Bytecode, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE bytecode SET is_cached = FALSE, last_eviction_bid = $3
		WHERE chain_id = $1 AND bytecode_hash = $2
		RETURNING chain_id, bytecode_hash, size, is_cached, last_bid::text,
		          bid_plus_decay::text, last_eviction_bid::text, total_bid_investment::text,
		          bid_block_number, bid_block_timestamp`,
		chainID, common.Hash(hash).Hex(), evictionBid,
	)
	bc, err := scanBytecode(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, indexererr.New(indexererr.IntegrityViolation, "DeleteBid without prior Bytecode row", map[string]any{
			"chain": chainID.String(), "bytecodeHash": common.Hash(hash).Hex(),
		})
	}
	return bc, err
}

func (s *Store) GetBytecode(ctx context.Context, chainID uuid.UUID, hash [32]byte) (*domain.Bytecode, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT chain_id, bytecode_hash, size, is_cached, last_bid::text,
		       bid_plus_decay::text, last_eviction_bid::text, total_bid_investment::text,
		       bid_block_number, bid_block_timestamp
		FROM bytecode WHERE chain_id = $1 AND bytecode_hash = $2`,
		chainID, common.Hash(hash).Hex())
	bc, err := scanBytecode(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return bc, true, nil
}

func scanBytecode(row pgx.Row) (*domain.Bytecode, error) {
	var (
		bc                                               domain.Bytecode
		hashHex                                          string
		lastBid, bidPlusDecay, totalInvestment           string
		lastEviction                                     *string
	)
	if err := row.Scan(&bc.ChainID, &hashHex, &bc.Size, &bc.IsCached,
		&lastBid, &bidPlusDecay, &lastEviction, &totalInvestment,
		&bc.BidBlockNumber, &bc.BidBlockTimestamp); err != nil {
		return nil, fmt.Errorf("pg: scan bytecode: %w", err)
	}
	bc.BytecodeHash = common.HexToHash(hashHex)
	bc.LastBid = bigFromString(lastBid)
	bc.BidPlusDecay = bigFromString(bidPlusDecay)
	bc.TotalBidInvestment = bigFromString(totalInvestment)
	if lastEviction != nil {
		bc.LastEvictionBid = bigFromString(*lastEviction)
	}
	return &bc, nil
}

// UpsertContractForInsertBid implements spec §4.7a's per-contract effects,
// mirroring the bytecode math on the contract row and linking it to
// bytecodeHash. is_automated and max_bid are untouched either way.
func (s *Store) UpsertContractForInsertBid(ctx context.Context, chainID uuid.UUID, address [20]byte, bytecodeHash [32]byte, size uint64, actualBid, rawBid string, blockNumber uint64, blockTimestampUnix int64) (*domain.Contract, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO contract (
			chain_id, address, bytecode_hash, size, is_cached, last_bid, bid_plus_decay,
			last_eviction_bid, total_bid_investment, bid_block_number, bid_block_timestamp,
			max_bid, is_automated
		) VALUES ($1,$2,$3,$4,TRUE,$5,$6,NULL,$5,$7,$8,NULL,FALSE)
		ON CONFLICT (chain_id, address) DO UPDATE SET
			bytecode_hash = EXCLUDED.bytecode_hash,
			size = EXCLUDED.size,
			is_cached = TRUE,
			last_bid = EXCLUDED.last_bid,
			bid_plus_decay = EXCLUDED.bid_plus_decay,
			total_bid_investment = contract.total_bid_investment + EXCLUDED.last_bid,
			bid_block_number = EXCLUDED.bid_block_number,
			bid_block_timestamp = EXCLUDED.bid_block_timestamp
		RETURNING chain_id, address, bytecode_hash, size, is_cached, last_bid::text,
		          bid_plus_decay::text, last_eviction_bid::text, total_bid_investment::text,
		          bid_block_number, bid_block_timestamp, max_bid::text, is_automated`,
		chainID, common.Address(address).Hex(), common.Hash(bytecodeHash).Hex(), size,
		actualBid, rawBid, blockNumber, time.Unix(blockTimestampUnix, 0).UTC(),
	)
	return scanContract(row)
}

// ApplyContractAdded implements spec §4.7c: requires an existing Contract
// row; sets maxBid + bid-block fields and isAutomated=true.
func (s *Store) ApplyContractAdded(ctx context.Context, chainID uuid.UUID, address [20]byte, maxBid string, blockNumber uint64, blockTimestampUnix int64) (*domain.Contract, error) {
	return s.updateAutomation(ctx, chainID, address, maxBid, blockNumber, blockTimestampUnix, true)
}

// ApplyContractUpdated implements spec §4.7d: requires an existing
// Contract row; sets maxBid + bid-block fields, leaves isAutomated as-is.
func (s *Store) ApplyContractUpdated(ctx context.Context, chainID uuid.UUID, address [20]byte, maxBid string, blockNumber uint64, blockTimestampUnix int64) (*domain.Contract, error) {
	return s.updateAutomation(ctx, chainID, address, maxBid, blockNumber, blockTimestampUnix, false)
}

func (s *Store) updateAutomation(ctx context.Context, chainID uuid.UUID, address [20]byte, maxBid string, blockNumber uint64, blockTimestampUnix int64, setAutomated bool) (*domain.Contract, error) {
	query := `
		UPDATE contract SET max_bid = $3, bid_block_number = $4, bid_block_timestamp = $5
		WHERE chain_id = $1 AND address = $2
		RETURNING chain_id, address, bytecode_hash, size, is_cached, last_bid::text,
		          bid_plus_decay::text, last_eviction_bid::text, total_bid_investment::text,
		          bid_block_number, bid_block_timestamp, max_bid::text, is_automated`
	if setAutomated {
		query = `
		UPDATE contract SET max_bid = $3, bid_block_number = $4, bid_block_timestamp = $5, is_automated = TRUE
		WHERE chain_id = $1 AND address = $2
		RETURNING chain_id, address, bytecode_hash, size, is_cached, last_bid::text,
		          bid_plus_decay::text, last_eviction_bid::text, total_bid_investment::text,
		          bid_block_number, bid_block_timestamp, max_bid::text, is_automated`
	}

	row := s.pool.QueryRow(ctx, query, chainID, common.Address(address).Hex(), maxBid,
		blockNumber, time.Unix(blockTimestampUnix, 0).UTC())
	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, indexererr.New(indexererr.IntegrityViolation, "automation event without prior Contract row", map[string]any{
			"chain": chainID.String(), "address": common.Address(address).Hex(),
		})
	}
	return c, err
}

func (s *Store) GetContract(ctx context.Context, chainID uuid.UUID, address [20]byte) (*domain.Contract, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT chain_id, address, bytecode_hash, size, is_cached, last_bid::text,
		       bid_plus_decay::text, last_eviction_bid::text, total_bid_investment::text,
		       bid_block_number, bid_block_timestamp, max_bid::text, is_automated
		FROM contract WHERE chain_id = $1 AND address = $2`,
		chainID, common.Address(address).Hex())
	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func scanContract(row pgx.Row) (*domain.Contract, error) {
	var (
		c                                     domain.Contract
		addrHex, hashHex                      string
		lastBid, bidPlusDecay, totalInvestment string
		lastEviction, maxBid                  *string
	)
	if err := row.Scan(&c.ChainID, &addrHex, &hashHex, &c.Size, &c.IsCached,
		&lastBid, &bidPlusDecay, &lastEviction, &totalInvestment,
		&c.BidBlockNumber, &c.BidBlockTimestamp, &maxBid, &c.IsAutomated); err != nil {
		return nil, fmt.Errorf("pg: scan contract: %w", err)
	}
	c.Address = common.HexToAddress(addrHex)
	c.BytecodeHash = common.HexToHash(hashHex)
	c.LastBid = bigFromString(lastBid)
	c.BidPlusDecay = bigFromString(bidPlusDecay)
	c.TotalBidInvestment = bigFromString(totalInvestment)
	if lastEviction != nil {
		c.LastEvictionBid = bigFromString(*lastEviction)
	}
	if maxBid != nil {
		c.MaxBid = bigFromString(*maxBid)
	}
	return &c, nil
}
