package services

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"gorm.io/gorm"
)

const (
	SearchAll       = "all"
	SearchAds       = "ads"
	SearchUsers     = "users"
	SearchCompanies = "companies"
	SearchNews      = "news"

	searchLimitPerType = 10
	searchLimitSingle  = 30
)

var searchTypes = map[string]bool{
	SearchAll: true, SearchAds: true, SearchUsers: true, SearchCompanies: true, SearchNews: true,
}

type SearchService struct {
	db *gorm.DB
}

func NewSearchService(db *gorm.DB) *SearchService {
	return &SearchService{db: db}
}

// LikePattern escapes LIKE wildcards in user input and wraps it for a
// substring match. Use it with ESCAPE '\'.
func LikePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}

// Search runs one substring query per requested entity type.
func (s *SearchService) Search(q, searchType string) (*dto.SearchResults, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < 2 {
		return nil, &ValidationError{Field: "q", Message: "must be at least 2 characters"}
	}
	if searchType == "" {
		searchType = SearchAll
	}
	if !searchTypes[searchType] {
		return nil, Invalid("invalid type: must be all, ads, users, companies or news")
	}

	limit := searchLimitSingle
	if searchType == SearchAll {
		limit = searchLimitPerType
	}
	pattern := LikePattern(q)
	want := func(t string) bool { return searchType == SearchAll || searchType == t }

	results := &dto.SearchResults{Query: q}

	if want(SearchAds) {
		if err := s.db.
			Where("status = ?", models.AdActive).
			Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern).
			Order("created_at DESC").Limit(limit).
			Find(&results.Ads).Error; err != nil {
			return nil, err
		}
	}

	if want(SearchUsers) {
		var users []models.User
		if err := s.db.
			Where("banned = ?", false).
			Where(`LOWER(display_name) LIKE ? ESCAPE '\'`, pattern).
			Order("display_name ASC").Limit(limit).
			Find(&users).Error; err != nil {
			return nil, err
		}
		for i := range users {
			results.Users = append(results.Users, ToPublicProfile(&users[i]))
		}
	}

	if want(SearchCompanies) {
		if err := s.db.
			Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern).
			Order("verified DESC, name ASC").Limit(limit).
			Find(&results.Companies).Error; err != nil {
			return nil, err
		}
	}

	if want(SearchNews) {
		if err := s.db.
			Where(`LOWER(body) LIKE ? ESCAPE '\'`, pattern).
			Order("created_at DESC").Limit(limit).
			Find(&results.News).Error; err != nil {
			return nil, err
		}
	}

	return results, nil
}
