package server

import (
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AddBlog handles POST /api/v1/blogs/add-blog (multipart: title, content, thumbnail)
func (s *Server) AddBlog(c *fiber.Ctx) error {
	thumbnail, err := formUpload(c, "thumbnail")
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		Caller:    callerFrom(c),
		Title:     c.FormValue("title"),
		Content:   c.FormValue("content"),
		Thumbnail: thumbnail,
		BaseURL:   s.baseURL(c),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Blog post added successfully",
		"blog_post": post,
	})
}

// UpdateBlog handles PUT /api/v1/blogs/update-blog/:blogid. Accepts a
// multipart form or a JSON body; absent fields are left unchanged.
func (s *Server) UpdateBlog(c *fiber.Ctx) error {
	postID, err := parseID(c, "blogid")
	if err != nil {
		return nil
	}

	var req struct {
		Title   *string `json:"title" form:"title"`
		Content *string `json:"content" form:"content"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}
	thumbnail, err := formUpload(c, "thumbnail")
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		Caller:    callerFrom(c),
		PostID:    postID,
		Title:     req.Title,
		Content:   req.Content,
		Thumbnail: thumbnail,
		BaseURL:   s.baseURL(c),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":   "Blog post updated successfully",
		"blog_post": post,
	})
}

// GetAllBlogs handles GET /api/v1/blogs/get-all-blogs
func (s *Server) GetAllBlogs(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPageSize)

	posts, err := s.postService.ListPosts(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"blog_posts": posts,
		"limit":      page.Limit,
		"offset":     page.Offset,
	})
}

// GetBlog handles GET /api/v1/blogs/get-blog/:blogid
func (s *Server) GetBlog(c *fiber.Ctx) error {
	postID, err := parseID(c, "blogid")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"blog_post": post})
}

// DeleteBlog handles DELETE /api/v1/blogs/delete-blog/:blogid
func (s *Server) DeleteBlog(c *fiber.Ctx) error {
	postID, err := parseID(c, "blogid")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		Caller: callerFrom(c),
		PostID: postID,
	}); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Blog post deleted successfully"})
}
