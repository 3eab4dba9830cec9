package pg

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cobuilders/cachemanager-indexer/internal/domain"
)

func (s *Store) InsertSnapshot(ctx context.Context, st *domain.BlockchainState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blockchain_state (
			id, chain_id, block_number, block_timestamp, cache_size, queue_size,
			decay_rate, is_paused, min_bid_small, min_bid_mid, min_bid_large,
			total_contracts_cached
		) VALUES (uuid_generate_v4(), $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		st.ChainID, st.BlockNumber, st.BlockTimestamp,
		numericOrZero(st.CacheSize), numericOrZero(st.QueueSize), numericOrZero(st.DecayRate),
		st.IsPaused, numericOrZero(st.MinBidSmall), numericOrZero(st.MinBidMid), numericOrZero(st.MinBidLarge),
		st.TotalContractsCached,
	)
	if err != nil {
		return fmt.Errorf("pg: insert state snapshot: %w", err)
	}
	return nil
}

func (s *Store) Latest(ctx context.Context, chainID uuid.UUID) (*domain.BlockchainState, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, chain_id, block_number, block_timestamp,
		       cache_size::text, queue_size::text, decay_rate::text, is_paused,
		       min_bid_small::text, min_bid_mid::text, min_bid_large::text,
		       total_contracts_cached
		FROM blockchain_state
		WHERE chain_id = $1
		ORDER BY block_number DESC
		LIMIT 1`, chainID)

	var (
		st                                                   domain.BlockchainState
		cacheSize, queueSize, decayRate                      string
		minSmall, minMid, minLarge                           string
	)
	err := row.Scan(&st.ID, &st.ChainID, &st.BlockNumber, &st.BlockTimestamp,
		&cacheSize, &queueSize, &decayRate, &st.IsPaused,
		&minSmall, &minMid, &minLarge, &st.TotalContractsCached)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pg: latest state: %w", err)
	}

	st.CacheSize = bigFromString(cacheSize)
	st.QueueSize = bigFromString(queueSize)
	st.DecayRate = bigFromString(decayRate)
	st.MinBidSmall = bigFromString(minSmall)
	st.MinBidMid = bigFromString(minMid)
	st.MinBidLarge = bigFromString(minLarge)
	return &st, true, nil
}

func numericOrZero(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func bigFromString(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return n
}
