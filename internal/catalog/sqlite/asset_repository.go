package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/soundvault/soundvault/internal/catalog"
)

// AssetRepository is the sqlite-backed catalog store.
type AssetRepository struct {
	db *sql.DB
}

func NewAssetRepository(dbConn *sql.DB) *AssetRepository {
	return &AssetRepository{db: dbConn}
}

func (r *AssetRepository) GetAssets(ctx context.Context) ([]catalog.Asset, error) {
	return r.queryAssets(ctx, `SELECT id, title, filename, category, reference FROM assets ORDER BY title`)
}

func (r *AssetRepository) GetAssetsByCategory(ctx context.Context, category string) ([]catalog.Asset, error) {
	return r.queryAssets(ctx,
		`SELECT id, title, filename, category, reference FROM assets WHERE category = ? ORDER BY title`, category)
}

func (r *AssetRepository) GetAsset(ctx context.Context, id int64) (*catalog.Asset, error) {
	var asset catalog.Asset

	var ref string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, filename, category, reference FROM assets WHERE id = ?`, id).
		Scan(&asset.ID, &asset.Title, &asset.Filename, &asset.Category, &ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrAssetNotFound
		}

		return nil, fmt.Errorf("failed to query asset: %w", err)
	}

	asset.Reference = catalog.Reference(ref)

	return &asset, nil
}

func (r *AssetRepository) AddAsset(ctx context.Context, asset *catalog.Asset) error {
	if asset.Filename == "" {
		asset.Filename = asset.Reference.Filename()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO assets (title, filename, category, reference) VALUES (?, ?, ?, ?)
		 ON CONFLICT(reference) DO UPDATE SET
			title = excluded.title,
			filename = excluded.filename,
			category = excluded.category`,
		asset.Title, asset.Filename, asset.Category, asset.Reference.String())
	if err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		asset.ID = id
	}

	return nil
}

func (r *AssetRepository) RemoveAsset(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return catalog.ErrAssetNotFound
	}

	return nil
}

func (r *AssetRepository) queryAssets(ctx context.Context, query string, args ...any) ([]catalog.Asset, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []catalog.Asset

	for rows.Next() {
		var asset catalog.Asset

		var ref string

		if err := rows.Scan(&asset.ID, &asset.Title, &asset.Filename, &asset.Category, &ref); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}

		asset.Reference = catalog.Reference(ref)
		assets = append(assets, asset)
	}

	return assets, rows.Err()
}
