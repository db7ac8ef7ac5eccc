package news

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/services"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrNotAuthor       = errors.New("only the author can do this")
	ErrCompanyNotOwned = errors.New("you do not own this company")
)

const (
	maxPostLength    = 5000
	maxCommentLength = 1000
)

type NewsService struct {
	db         *gorm.DB
	moderation *services.ModerationService
}

func NewNewsService(db *gorm.DB, moderation *services.ModerationService) *NewsService {
	return &NewsService{db: db, moderation: moderation}
}

func (s *NewsService) profiles(ids []uuid.UUID) map[uuid.UUID]dto.PublicProfile {
	out := make(map[uuid.UUID]dto.PublicProfile, len(ids))
	if len(ids) == 0 {
		return out
	}
	var users []models.User
	s.db.Unscoped().Where("id IN ?", ids).Find(&users)
	for i := range users {
		out[users[i].ID] = services.ToPublicProfile(&users[i])
	}
	return out
}

// List returns posts newest first. With a viewer, authors the viewer blocked
// are left out and liked flags are filled in.
func (s *NewsService) List(viewer *uuid.UUID, page, limit int) ([]PostView, int64, error) {
	query := s.db.Model(&models.NewsPost{})
	if viewer != nil {
		blocked, err := s.moderation.GetBlockedIDs(*viewer)
		if err != nil {
			return nil, 0, err
		}
		if len(blocked) > 0 {
			query = query.Where("author_id NOT IN ?", blocked)
		}
	}

	var total int64
	query.Count(&total)

	var posts []models.NewsPost
	if err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&posts).Error; err != nil {
		return nil, 0, err
	}

	authorIDs := make([]uuid.UUID, 0, len(posts))
	postIDs := make([]uuid.UUID, 0, len(posts))
	for _, p := range posts {
		authorIDs = append(authorIDs, p.AuthorID)
		postIDs = append(postIDs, p.ID)
	}
	authors := s.profiles(authorIDs)

	liked := map[uuid.UUID]bool{}
	if viewer != nil && len(postIDs) > 0 {
		var likes []models.NewsLike
		s.db.Where("user_id = ? AND post_id IN ?", *viewer, postIDs).Find(&likes)
		for _, l := range likes {
			liked[l.PostID] = true
		}
	}

	views := make([]PostView, len(posts))
	for i, p := range posts {
		views[i] = PostView{NewsPost: p, Author: authors[p.AuthorID], Liked: liked[p.ID]}
	}
	return views, total, nil
}

func (s *NewsService) Create(userID uuid.UUID, req *CreatePostRequest) (*models.NewsPost, error) {
	body := strings.TrimSpace(req.Body)
	if n := len([]rune(body)); n == 0 || n > maxPostLength {
		return nil, &services.ValidationError{Field: "body", Message: "must be 1-5000 characters"}
	}
	if err := s.moderation.CheckContent("body", body, services.FilterOptions{AllowLinks: true}); err != nil {
		return nil, err
	}
	imageURL := strings.TrimSpace(req.ImageURL)
	if len(imageURL) > 500 {
		return nil, &services.ValidationError{Field: "image_url", Message: "must be at most 500 characters"}
	}

	if req.CompanyID != nil {
		var count int64
		s.db.Model(&models.Company{}).Where("id = ? AND owner_id = ?", *req.CompanyID, userID).Count(&count)
		if count == 0 {
			return nil, ErrCompanyNotOwned
		}
	}

	post := models.NewsPost{
		AuthorID:  userID,
		CompanyID: req.CompanyID,
		Body:      body,
		ImageURL:  imageURL,
	}
	if err := s.db.Create(&post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return &post, nil
}

func (s *NewsService) get(postID uuid.UUID) (*models.NewsPost, error) {
	var post models.NewsPost
	if err := s.db.First(&post, "id = ?", postID).Error; err != nil {
		return nil, ErrPostNotFound
	}
	return &post, nil
}

// Delete soft-deletes a post. Admins may delete any post.
func (s *NewsService) Delete(userID, postID uuid.UUID, isAdmin bool) error {
	post, err := s.get(postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID && !isAdmin {
		return ErrNotAuthor
	}
	return s.db.Delete(post).Error
}

// ToggleLike likes the post, or removes an existing like, and keeps
// like_count in step.
func (s *NewsService) ToggleLike(userID, postID uuid.UUID) (*LikeResponse, error) {
	if _, err := s.get(postID); err != nil {
		return nil, err
	}

	resp := &LikeResponse{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.NewsLike{})
		if result.Error != nil {
			return result.Error
		}
		delta := "like_count - 1"
		if result.RowsAffected == 0 {
			if err := tx.Create(&models.NewsLike{PostID: postID, UserID: userID}).Error; err != nil {
				return err
			}
			delta = "like_count + 1"
			resp.Liked = true
		}
		if err := tx.Model(&models.NewsPost{}).Where("id = ?", postID).
			UpdateColumn("like_count", gorm.Expr(delta)).Error; err != nil {
			return err
		}
		return tx.Model(&models.NewsPost{}).Select("like_count").Where("id = ?", postID).Scan(&resp.LikeCount).Error
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *NewsService) Comments(postID uuid.UUID, page, limit int) ([]CommentView, int64, error) {
	if _, err := s.get(postID); err != nil {
		return nil, 0, err
	}

	var total int64
	query := s.db.Model(&models.NewsComment{}).Where("post_id = ?", postID)
	query.Count(&total)

	var comments []models.NewsComment
	if err := query.Order("created_at ASC").Offset((page - 1) * limit).Limit(limit).Find(&comments).Error; err != nil {
		return nil, 0, err
	}

	ids := make([]uuid.UUID, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.AuthorID)
	}
	authors := s.profiles(ids)

	views := make([]CommentView, len(comments))
	for i, c := range comments {
		views[i] = CommentView{NewsComment: c, Author: authors[c.AuthorID]}
	}
	return views, total, nil
}

func (s *NewsService) AddComment(userID, postID uuid.UUID, req *CreateCommentRequest) (*models.NewsComment, error) {
	body := strings.TrimSpace(req.Body)
	if n := len([]rune(body)); n == 0 || n > maxCommentLength {
		return nil, &services.ValidationError{Field: "body", Message: "must be 1-1000 characters"}
	}
	if err := s.moderation.CheckContent("body", body, services.FilterOptions{AllowLinks: true}); err != nil {
		return nil, err
	}
	if _, err := s.get(postID); err != nil {
		return nil, err
	}

	comment := models.NewsComment{PostID: postID, AuthorID: userID, Body: body}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.NewsPost{}).Where("id = ?", postID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	return &comment, nil
}

// DeleteComment removes a comment. The comment author, the post author and
// admins may delete it.
func (s *NewsService) DeleteComment(userID, commentID uuid.UUID, isAdmin bool) error {
	var comment models.NewsComment
	if err := s.db.First(&comment, "id = ?", commentID).Error; err != nil {
		return ErrCommentNotFound
	}

	if comment.AuthorID != userID && !isAdmin {
		post, err := s.get(comment.PostID)
		if err != nil || post.AuthorID != userID {
			return ErrNotAuthor
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.NewsPost{}).Where("id = ? AND comment_count > 0", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
	})
}
