package news

import (
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/google/uuid"
)

type CreatePostRequest struct {
	Body      string     `json:"body"`
	ImageURL  string     `json:"image_url"`
	CompanyID *uuid.UUID `json:"company_id"`
}

type CreateCommentRequest struct {
	Body string `json:"body"`
}

type PostView struct {
	models.NewsPost
	Author dto.PublicProfile `json:"author"`
	Liked  bool              `json:"liked"`
}

type CommentView struct {
	models.NewsComment
	Author dto.PublicProfile `json:"author"`
}

type LikeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}
