package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cobuilders/cachemanager-indexer/internal/domain"
	"github.com/cobuilders/cachemanager-indexer/internal/store"
)

const uniqueViolation = "23505"

// StoreEvents implements spec §4.2's storeEvents: each record is inserted
// in its own transaction. On unique violation, a realtime record flips the
// stored row's is_real_time to true (monotonicity, never the reverse); a
// historical record is treated as a committed no-op. Any other error rolls
// back that one record and increments ErrorCount; the batch never aborts.
func (s *Store) StoreEvents(ctx context.Context, records []*domain.BlockchainEvent) (store.StoreResult, error) {
	var res store.StoreResult
	res.TotalEvents = len(records)

	for _, rec := range records {
		if err := s.storeOne(ctx, rec); err != nil {
			res.ErrorCount++
			log.Error("pg: store event failed", "chain", rec.ChainID, "tx", rec.TransactionHash, "logIndex", rec.LogIndex, "err", err)
			continue
		}
		res.SuccessCount++
	}
	return res, nil
}

func (s *Store) storeOne(ctx context.Context, rec *domain.BlockchainEvent) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	payload, err := json.Marshal(rec.EventData)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO blockchain_event (
			id, chain_id, contract_name, contract_address, event_name,
			block_number, block_timestamp, transaction_hash, log_index,
			is_real_time, event_data
		) VALUES (uuid_generate_v4(), $1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rec.ChainID, string(rec.ContractName), rec.ContractAddress.Hex(), rec.EventName,
		rec.BlockNumber, rec.BlockTimestamp, rec.TransactionHash.Hex(), rec.LogIndex,
		rec.IsRealTime, payload,
	)
	if err == nil {
		return tx.Commit(ctx)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if rec.IsRealTime {
			_, uerr := tx.Exec(ctx, `
				UPDATE blockchain_event SET is_real_time = TRUE
				WHERE chain_id = $1 AND transaction_hash = $2 AND log_index = $3 AND event_name = $4
				AND is_real_time = FALSE`,
				rec.ChainID, rec.TransactionHash.Hex(), rec.LogIndex, rec.EventName)
			if uerr != nil {
				return fmt.Errorf("flip is_real_time: %w", uerr)
			}
		}
		return tx.Commit(ctx)
	}
	return fmt.Errorf("insert event: %w", err)
}

func (s *Store) StreamAfter(ctx context.Context, chainID uuid.UUID, afterBlock uint64, afterLogIndex uint, limit int) ([]*domain.BlockchainEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, chain_id, contract_name, contract_address, event_name,
		       block_number, block_timestamp, transaction_hash, log_index,
		       is_real_time, event_data
		FROM blockchain_event
		WHERE chain_id = $1 AND (block_number, log_index) > ($2, $3)
		ORDER BY block_number ASC, log_index ASC
		LIMIT $4`,
		chainID, afterBlock, afterLogIndex, limit)
	if err != nil {
		return nil, fmt.Errorf("pg: stream events: %w", err)
	}
	defer rows.Close()

	var out []*domain.BlockchainEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("pg: scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) ExistsByKey(ctx context.Context, key domain.Key) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM blockchain_event
			WHERE chain_id = $1 AND transaction_hash = $2 AND log_index = $3 AND event_name = $4
		)`, key.ChainID, key.TransactionHash.Hex(), key.LogIndex, key.EventName,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pg: exists by key: %w", err)
	}
	return exists, nil
}

func (s *Store) DecayRateBefore(ctx context.Context, chainID uuid.UUID, blockNumber uint64, logIndex uint) (string, bool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT event_data FROM blockchain_event
		WHERE chain_id = $1 AND event_name = 'SetDecayRate'
		  AND (block_number, log_index) <= ($2, $3)
		ORDER BY block_number DESC, log_index DESC
		LIMIT 1`, chainID, blockNumber, logIndex)
	if err != nil {
		return "", false, fmt.Errorf("pg: decay rate lookup: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return "", false, nil
	}
	var raw []byte
	if err := rows.Scan(&raw); err != nil {
		return "", false, fmt.Errorf("pg: scan decay rate event: %w", err)
	}
	var args domain.EventArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", false, fmt.Errorf("pg: unmarshal decay rate event data: %w", err)
	}
	if len(args) == 0 {
		return "", false, nil
	}
	return args[0].Value, true, nil
}

func scanEvent(rows pgx.Rows) (*domain.BlockchainEvent, error) {
	var (
		ev              domain.BlockchainEvent
		contractName    string
		contractAddr    string
		txHash          string
		rawArgs         []byte
	)
	if err := rows.Scan(
		&ev.ID, &ev.ChainID, &contractName, &contractAddr, &ev.EventName,
		&ev.BlockNumber, &ev.BlockTimestamp, &txHash, &ev.LogIndex,
		&ev.IsRealTime, &rawArgs,
	); err != nil {
		return nil, err
	}
	ev.ContractName = domain.ContractKind(contractName)
	ev.ContractAddress = hexToAddress(contractAddr)
	ev.TransactionHash = hexToHash(txHash)
	if err := json.Unmarshal(rawArgs, &ev.EventData); err != nil {
		return nil, fmt.Errorf("unmarshal event_data: %w", err)
	}
	return &ev, nil
}
