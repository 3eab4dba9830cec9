package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cobuilders/cachemanager-indexer/internal/domain"
)

func scanChain(row pgx.Row) (*domain.Chain, error) {
	var (
		c                domain.Chain
		cacheMgrAddr     string
		arbWasmCacheAddr string
		arbWasmAddr      string
		automationAddr   *string
	)
	if err := row.Scan(
		&c.ID, &c.Name, &c.ChainID, &c.RPCURL, &c.FastSyncRPCURL,
		&c.WSURL, &c.WSBackupURL, &cacheMgrAddr, &arbWasmCacheAddr, &arbWasmAddr,
		&automationAddr, &c.OriginBlock, &c.LastSyncedBlock,
		&c.LastProcessedBlockNumber, &c.Enabled,
	); err != nil {
		return nil, err
	}
	c.CacheManagerAddress = common.HexToAddress(cacheMgrAddr)
	c.ArbWasmCacheAddress = common.HexToAddress(arbWasmCacheAddr)
	c.ArbWasmAddress = common.HexToAddress(arbWasmAddr)
	if automationAddr != nil {
		addr := common.HexToAddress(*automationAddr)
		c.CacheManagerAutomationAddress = &addr
	}
	return &c, nil
}

const chainColumns = `id, name, chain_id, rpc_url, fast_sync_rpc_url, rpc_wss_url,
	rpc_wss_url_backup, cache_manager_address, arb_wasm_cache_address, arb_wasm_address,
	cache_manager_automation_address, origin_block, last_synced_block,
	last_processed_block_number, enabled`

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.Chain, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+chainColumns+` FROM blockchain WHERE id = $1`, id)
	c, err := scanChain(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pg: get chain: %w", err)
	}
	return c, true, nil
}

func (s *Store) FindByChainIDAndRPCURL(ctx context.Context, chainID uint64, rpcURL string) (*domain.Chain, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+chainColumns+` FROM blockchain WHERE chain_id = $1 AND rpc_url = $2`, chainID, rpcURL)
	c, err := scanChain(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pg: find chain: %w", err)
	}
	return c, true, nil
}

func (s *Store) Insert(ctx context.Context, c *domain.Chain) error {
	var automationAddr *string
	if c.CacheManagerAutomationAddress != nil {
		v := c.CacheManagerAutomationAddress.Hex()
		automationAddr = &v
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO blockchain (
			name, chain_id, rpc_url, fast_sync_rpc_url, rpc_wss_url, rpc_wss_url_backup,
			cache_manager_address, arb_wasm_cache_address, arb_wasm_address,
			cache_manager_automation_address, origin_block, last_synced_block,
			last_processed_block_number, enabled
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id`,
		c.Name, c.ChainID, c.RPCURL, c.FastSyncRPCURL, c.WSURL, c.WSBackupURL,
		c.CacheManagerAddress.Hex(), c.ArbWasmCacheAddress.Hex(), c.ArbWasmAddress.Hex(),
		automationAddr, c.OriginBlock, c.LastSyncedBlock, c.LastProcessedBlockNumber, c.Enabled,
	)
	if err := row.Scan(&c.ID); err != nil {
		return fmt.Errorf("pg: insert chain: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]*domain.Chain, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+chainColumns+` FROM blockchain ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("pg: list chains: %w", err)
	}
	defer rows.Close()

	var out []*domain.Chain
	for rows.Next() {
		c, err := scanChain(rows)
		if err != nil {
			return nil, fmt.Errorf("pg: scan chain: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetLastSyncedBlock(ctx context.Context, chainID uuid.UUID) (uint64, error) {
	var n uint64
	err := s.pool.QueryRow(ctx, `SELECT last_synced_block FROM blockchain WHERE id = $1`, chainID).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("pg: get last synced block: %w", err)
	}
	return n, nil
}

// UpdateLastSyncedBlock is a CAS-style update: it only advances the
// cursor. A caller passing a regressive n gets a logged warning, not an
// error (spec §4.2).
func (s *Store) UpdateLastSyncedBlock(ctx context.Context, chainID uuid.UUID, n uint64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE blockchain SET last_synced_block = $2 WHERE id = $1 AND last_synced_block <= $2`,
		chainID, n)
	if err != nil {
		return fmt.Errorf("pg: update last synced block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		log.Warn("pg: last_synced_block regression ignored", "chain", chainID, "attempted", n)
	}
	return nil
}

func (s *Store) GetLastProcessedBlock(ctx context.Context, chainID uuid.UUID) (uint64, error) {
	var n uint64
	err := s.pool.QueryRow(ctx, `SELECT last_processed_block_number FROM blockchain WHERE id = $1`, chainID).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("pg: get last processed block: %w", err)
	}
	return n, nil
}

func (s *Store) UpdateLastProcessedBlock(ctx context.Context, chainID uuid.UUID, n uint64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE blockchain SET last_processed_block_number = $2 WHERE id = $1 AND last_processed_block_number <= $2`,
		chainID, n)
	if err != nil {
		return fmt.Errorf("pg: update last processed block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		log.Warn("pg: last_processed_block_number regression ignored", "chain", chainID, "attempted", n)
	}
	return nil
}
