package objects

import (
	"github.com/calledit/calledit/internal/models"
)

// Promotion kinds
const (
	PromoAdvertisement = "advertisement"
	PromoAffiliate     = "affiliate"
)

// PromoView is an advertisement or affiliate card placed in a feed
type PromoView struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	LinkURL  string `json:"linkUrl"`
	Category string `json:"category,omitempty"`
}

// ItemType implements FeedItem
func (v *PromoView) ItemType() string { return v.Type }

// MapAdvertisement converts an advertisement row
func MapAdvertisement(ad *models.Advertisement) *PromoView {
	return &PromoView{
		Type:     PromoAdvertisement,
		ID:       ad.ID,
		Title:    ad.Title,
		Body:     ad.Body,
		ImageURL: ad.ImageURL.String,
		LinkURL:  ad.LinkURL,
		Category: ad.Category.String,
	}
}

// MapAffiliate converts an affiliate row
func MapAffiliate(a *models.Affiliate) *PromoView {
	return &PromoView{
		Type:     PromoAffiliate,
		ID:       a.ID,
		Title:    a.Name,
		Body:     a.Description,
		ImageURL: a.ImageURL.String,
		LinkURL:  a.LinkURL,
		Category: a.Category.String,
	}
}
