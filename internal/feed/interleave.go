package feed

import (
	"github.com/calledit/calledit/internal/api/objects"
)

// Interleave places a promotion after the first prediction and then after
// every cadence-th prediction that follows, cycling through pool in order.
// It returns the merged stream and the promotions that were placed.
func Interleave(predictions []*objects.PredictionView, pool []*objects.PromoView, cadence int) ([]objects.FeedItem, []*objects.PromoView) {
	items := make([]objects.FeedItem, 0, len(predictions)+len(predictions)/max(cadence, 1)+1)
	if len(pool) == 0 || cadence <= 0 {
		for _, p := range predictions {
			items = append(items, p)
		}
		return items, nil
	}

	var shown []*objects.PromoView
	for i, p := range predictions {
		items = append(items, p)
		if i == 0 || i%cadence == 0 {
			promo := pool[len(shown)%len(pool)]
			items = append(items, promo)
			shown = append(shown, promo)
		}
	}
	return items, shown
}
