package server

import (
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AddComment handles POST /api/v1/comments/add-comment
func (s *Server) AddComment(c *fiber.Ctx) error {
	var req struct {
		PostID  uint   `json:"post_id"`
		Comment string `json:"comment"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		Caller: callerFrom(c),
		PostID: req.PostID,
		Text:   req.Comment,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Comment added successfully.",
		"comment": comment,
	})
}

// UpdateComment handles PUT /api/v1/comments/update-comment/:commentId
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	commentID, err := parseID(c, "commentId")
	if err != nil {
		return nil
	}

	var req struct {
		Comment string `json:"comment"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		Caller:    callerFrom(c),
		CommentID: commentID,
		Text:      req.Comment,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Comment updated successfully.",
		"comment": fiber.Map{"id": comment.ID, "comment": comment.Comment},
	})
}

// GetComments handles GET /api/v1/comments/get-comments/:postId
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	comments, err := s.commentService.ListComments(c.UserContext(), postID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Comments retrieved successfully.",
		"comments": comments,
	})
}

// DeleteComment handles DELETE /api/v1/comments/delete-comment/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := parseID(c, "commentId")
	if err != nil {
		return nil
	}

	if err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		Caller:    callerFrom(c),
		CommentID: commentID,
	}); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Comment deleted successfully."})
}
