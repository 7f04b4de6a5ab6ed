package sqlite

import (
	"context"

	"github.com/soundvault/soundvault/internal/catalog"
	"github.com/soundvault/soundvault/internal/telemetry"
)

// InstrumentedAssetRepository wraps an AssetRepository with telemetry.
type InstrumentedAssetRepository struct {
	repo      *AssetRepository
	telemetry *telemetry.Telemetry
}

func NewInstrumentedAssetRepository(repo *AssetRepository, tel *telemetry.Telemetry) *InstrumentedAssetRepository {
	return &InstrumentedAssetRepository{repo: repo, telemetry: tel}
}

func (r *InstrumentedAssetRepository) GetAssets(ctx context.Context) ([]catalog.Asset, error) {
	var result []catalog.Asset

	var err error

	instrumentedErr := r.telemetry.InstrumentDBOperation(ctx, "get_assets", func(ctx context.Context) error {
		result, err = r.repo.GetAssets(ctx)

		return err
	})
	if instrumentedErr != nil {
		return nil, instrumentedErr
	}

	return result, nil
}

func (r *InstrumentedAssetRepository) GetAssetsByCategory(ctx context.Context, category string) ([]catalog.Asset, error) {
	var result []catalog.Asset

	var err error

	instrumentedErr := r.telemetry.InstrumentDBOperation(ctx, "get_assets_by_category", func(ctx context.Context) error {
		result, err = r.repo.GetAssetsByCategory(ctx, category)

		return err
	})
	if instrumentedErr != nil {
		return nil, instrumentedErr
	}

	return result, nil
}

func (r *InstrumentedAssetRepository) GetAsset(ctx context.Context, id int64) (*catalog.Asset, error) {
	var result *catalog.Asset

	var err error

	instrumentedErr := r.telemetry.InstrumentDBOperation(ctx, "get_asset", func(ctx context.Context) error {
		result, err = r.repo.GetAsset(ctx, id)

		return err
	})
	if instrumentedErr != nil {
		return nil, instrumentedErr
	}

	return result, nil
}

func (r *InstrumentedAssetRepository) AddAsset(ctx context.Context, asset *catalog.Asset) error {
	return r.telemetry.InstrumentDBOperation(ctx, "add_asset", func(ctx context.Context) error {
		return r.repo.AddAsset(ctx, asset)
	})
}

func (r *InstrumentedAssetRepository) RemoveAsset(ctx context.Context, id int64) error {
	return r.telemetry.InstrumentDBOperation(ctx, "remove_asset", func(ctx context.Context) error {
		return r.repo.RemoveAsset(ctx, id)
	})
}
