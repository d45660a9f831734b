package service

import (
	"context"

	"github.com/aleks2005vk/cheap-gasoline/internal/model"
)

// PriceNotifier is told about observations after they are committed.
// Implementations must not block the caller for long and must swallow
// their own errors.
type PriceNotifier interface {
	PricesRecorded(ctx context.Context, observations []model.PriceObservation)
}

type noopNotifier struct{}

func (noopNotifier) PricesRecorded(context.Context, []model.PriceObservation) {}
