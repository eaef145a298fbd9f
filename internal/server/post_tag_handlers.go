package server

import (
	"github.com/gofiber/fiber/v2"
)

// AddPostTag handles POST /api/v1/post-tags/add-post-tag
func (s *Server) AddPostTag(c *fiber.Ctx) error {
	var req struct {
		PostID uint `json:"post_id"`
		TagID  uint `json:"tag_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := s.postTagService.AddTag(c.UserContext(), callerFrom(c), req.PostID, req.TagID); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Tag added to post successfully.",
		"tag":     fiber.Map{"post_id": req.PostID, "tag_id": req.TagID},
	})
}

// RemovePostTag handles DELETE /api/v1/post-tags/remove-post-tag/:postId/:tagId
func (s *Server) RemovePostTag(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}
	tagID, err := parseID(c, "tagId")
	if err != nil {
		return nil
	}

	if err := s.postTagService.RemoveTag(c.UserContext(), callerFrom(c), postID, tagID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Tag removed from post successfully.",
		"deleted": true,
		"post_id": postID,
		"tag_id":  tagID,
	})
}

// TagsForPost handles GET /api/v1/post-tags/get-all-tags-for-post/:postId
func (s *Server) TagsForPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	tags, err := s.postTagService.TagsForPost(c.UserContext(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post_id": postID, "tags": tags})
}

// PostsByTag handles GET /api/v1/post-tags/get-posts-by-tag/:tagId
func (s *Server) PostsByTag(c *fiber.Ctx) error {
	tagID, err := parseID(c, "tagId")
	if err != nil {
		return nil
	}

	posts, err := s.postTagService.PostsForTag(c.UserContext(), tagID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"tag_id": tagID, "posts": posts})
}
