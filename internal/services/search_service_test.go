package services

import (
	"testing"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewSearchService(db)
	user := testutil.CreateUser(t, db, "bike-fan@example.com")
	require.NoError(t, db.Model(user).Update("display_name", "Bike Fan").Error)

	for i := 0; i < 12; i++ {
		require.NoError(t, db.Create(&models.Ad{UserID: user.ID, Title: "Mountain bike", Category: "sports", Status: models.AdActive}).Error)
	}
	require.NoError(t, db.Create(&models.Ad{UserID: user.ID, Title: "Sold bike", Category: "sports", Status: models.AdSold}).Error)
	require.NoError(t, db.Create(&models.Company{OwnerID: user.ID, Name: "Bike Shop", Slug: "bike-shop"}).Error)
	require.NoError(t, db.Create(&models.NewsPost{AuthorID: user.ID, Body: "New BIKE lanes downtown"}).Error)

	all, err := svc.Search("bike", "")
	require.NoError(t, err)
	assert.Len(t, all.Ads, searchLimitPerType)
	assert.Len(t, all.Users, 1)
	assert.Len(t, all.Companies, 1)
	assert.Len(t, all.News, 1)

	ads, err := svc.Search("BIKE", SearchAds)
	require.NoError(t, err)
	assert.Len(t, ads.Ads, 12)
	assert.Empty(t, ads.Users)
	assert.Empty(t, ads.Companies)
}

func TestSearchValidation(t *testing.T) {
	svc := NewSearchService(testutil.NewDB(t))

	_, err := svc.Search("b", SearchAll)
	assert.True(t, IsValidation(err))

	_, err = svc.Search("bike", "planets")
	assert.True(t, IsValidation(err))
}

func TestSearchEscapesWildcards(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewSearchService(db)
	user := testutil.CreateUser(t, db, "x@example.com")
	require.NoError(t, db.Create(&models.Ad{UserID: user.ID, Title: "plain title", Category: "misc", Status: models.AdActive}).Error)

	res, err := svc.Search("%%", SearchAds)
	require.NoError(t, err)
	assert.Empty(t, res.Ads)
}
