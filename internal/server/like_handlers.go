package server

import (
	"github.com/gofiber/fiber/v2"
)

// LikePost handles POST /api/v1/likes/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	var req struct {
		PostID uint `json:"post_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	caller := callerFrom(c)
	if err := s.likeService.Like(c.UserContext(), caller, req.PostID); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Post liked successfully.",
		"like":    fiber.Map{"post_id": req.PostID, "user_id": caller.ID},
	})
}

// UnlikePost handles DELETE /api/v1/likes/unlike/:postId
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	caller := callerFrom(c)
	if err := s.likeService.Unlike(c.UserContext(), caller, postID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Post unliked successfully.",
		"deleted": true,
		"post_id": postID,
		"user_id": caller.ID,
	})
}

// LikesCount handles GET /api/v1/likes/count/:postId
func (s *Server) LikesCount(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	count, err := s.likeService.Count(c.UserContext(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post_id": postID, "likes_count": count})
}

// IsLiked handles GET /api/v1/likes/is-liked/:postId
func (s *Server) IsLiked(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	liked, err := s.likeService.IsLiked(c.UserContext(), callerFrom(c), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post_id": postID, "liked": liked})
}

// LikedBy handles GET /api/v1/likes/users/:postId
func (s *Server) LikedBy(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	users, err := s.likeService.Likers(c.UserContext(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post_id": postID, "users": users})
}
