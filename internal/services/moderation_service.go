package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrAlreadyBlocked = errors.New("user already blocked")
	ErrSelfBlock      = errors.New("cannot block yourself")
)

var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes",
	"scam", "scammer", "phishing", "malware",
}

var reportContentTypes = map[string]bool{
	"user": true, "ad": true, "company": true, "post": true, "comment": true, "message": true,
}

// FilterOptions relaxes the content filter per surface. Listings usually
// carry a phone number; news posts often link somewhere.
type FilterOptions struct {
	AllowLinks   bool
	AllowContact bool
}

type ModerationService struct {
	db                *gorm.DB
	bannedWordRegexps []*regexp.Regexp
	urlPattern        *regexp.Regexp
	emailPattern      *regexp.Regexp
	phonePattern      *regexp.Regexp
	allCapsPattern    *regexp.Regexp
}

func NewModerationService(db *gorm.DB) *ModerationService {
	ms := &ModerationService{db: db}
	ms.compilePatterns()
	return ms
}

func (ms *ModerationService) compilePatterns() {
	ms.bannedWordRegexps = make([]*regexp.Regexp, 0, len(BannedWords))
	for _, word := range BannedWords {
		ms.bannedWordRegexps = append(ms.bannedWordRegexps, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}

	ms.urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)
	ms.emailPattern = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	ms.phonePattern = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`)
	ms.allCapsPattern = regexp.MustCompile(`\b[A-Z]{5,}\b`)
}

// FilterContent returns ok=false and a machine-readable reason when text
// breaks the content rules.
func (ms *ModerationService) FilterContent(text string, opts FilterOptions) (bool, string) {
	if text == "" {
		return true, ""
	}
	if ms.ContainsProfanity(text) {
		return false, "inappropriate_language"
	}
	if !opts.AllowLinks && ms.urlPattern.MatchString(text) {
		return false, "url_not_allowed"
	}
	if !opts.AllowContact && (ms.emailPattern.MatchString(text) || ms.phonePattern.MatchString(text)) {
		return false, "contact_info_not_allowed"
	}
	if hasRepeatedRun(text, 5) {
		return false, "spam_detected"
	}
	if len(ms.allCapsPattern.FindAllString(text, -1)) > 2 {
		return false, "excessive_caps"
	}
	return true, ""
}

// CheckContent wraps FilterContent into a ValidationError for services.
func (ms *ModerationService) CheckContent(field, text string, opts FilterOptions) error {
	if ok, reason := ms.FilterContent(text, opts); !ok {
		return &ValidationError{Field: field, Message: RejectionMessage(reason)}
	}
	return nil
}

func (ms *ModerationService) ContainsProfanity(text string) bool {
	for _, re := range ms.bannedWordRegexps {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// hasRepeatedRun reports whether the same letter or punctuation mark occurs n
// or more times in a row (case-insensitive). RE2 has no backreferences.
func hasRepeatedRun(text string, n int) bool {
	var prev rune
	run := 0
	for _, r := range strings.ToLower(text) {
		isCandidate := (r >= 'a' && r <= 'z') || r == '!' || r == '?' || r == '.'
		if isCandidate && r == prev {
			run++
			if run >= n {
				return true
			}
			continue
		}
		prev = r
		run = 1
	}
	return false
}

func RejectionMessage(reason string) string {
	messages := map[string]string{
		"inappropriate_language":   "contains inappropriate language",
		"url_not_allowed":          "must not contain links",
		"contact_info_not_allowed": "must not contain contact information",
		"spam_detected":            "looks like spam",
		"excessive_caps":           "uses too many capital letters",
	}
	if msg, ok := messages[reason]; ok {
		return msg
	}
	return "does not meet our content guidelines"
}

func (s *ModerationService) CreateReport(reporterID uuid.UUID, req *dto.CreateReportRequest) (*models.Report, error) {
	if !reportContentTypes[req.ContentType] {
		return nil, Invalid("invalid content_type: must be user, ad, company, post, comment or message")
	}
	if strings.TrimSpace(req.ContentID) == "" {
		return nil, Invalid("content_id is required")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, Invalid("reason is required")
	}
	if len(reason) > 500 {
		return nil, Invalid("reason must be at most 500 characters")
	}

	report := models.Report{
		ReporterID:  reporterID,
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
		Reason:      reason,
		Status:      models.ReportPending,
	}
	if err := s.db.Create(&report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return &report, nil
}

func (s *ModerationService) ListReports(status string, limit, offset int) ([]models.Report, int64, error) {
	var reports []models.Report
	var total int64

	query := s.db.Model(&models.Report{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	query.Count(&total)

	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (s *ModerationService) ActionReport(reportID uuid.UUID, req *dto.ActionReportRequest) error {
	validStatuses := map[string]bool{models.ReportReviewed: true, models.ReportActioned: true, models.ReportDismissed: true}
	if !validStatuses[req.Status] {
		return Invalid("invalid status: must be reviewed, actioned or dismissed")
	}

	result := s.db.Model(&models.Report{}).
		Where("id = ?", reportID).
		Updates(map[string]interface{}{
			"status":     req.Status,
			"admin_note": req.AdminNote,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (s *ModerationService) BlockUser(blockerID, blockedID uuid.UUID) error {
	if blockerID == blockedID {
		return ErrSelfBlock
	}
	if blockedID == uuid.Nil {
		return Invalid("blocked_id is required")
	}

	var existing models.Block
	if err := s.db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).First(&existing).Error; err == nil {
		return ErrAlreadyBlocked
	}

	return s.db.Create(&models.Block{BlockerID: blockerID, BlockedID: blockedID}).Error
}

func (s *ModerationService) UnblockUser(blockerID, blockedID uuid.UUID) error {
	return s.db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{}).Error
}

func (s *ModerationService) GetBlockedIDs(userID uuid.UUID) ([]uuid.UUID, error) {
	var blocks []models.Block
	if err := s.db.Where("blocker_id = ?", userID).Find(&blocks).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(blocks))
	for i, b := range blocks {
		ids[i] = b.BlockedID
	}
	return ids, nil
}

// EitherBlocked reports whether a blocked b or b blocked a.
func (s *ModerationService) EitherBlocked(a, b uuid.UUID) (bool, error) {
	var count int64
	err := s.db.Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}
