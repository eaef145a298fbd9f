package server

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
)

// tagNames accepts "name" or "names", each either a string or a list of strings.
type tagNames []string

func (n *tagNames) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*n = tagNames{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*n = many
	return nil
}

// CreateTag handles POST /api/v1/tags/create-tag
func (s *Server) CreateTag(c *fiber.Ctx) error {
	var req struct {
		Name  tagNames `json:"name"`
		Names tagNames `json:"names"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	names := append(append([]string{}, req.Names...), req.Name...)
	res, err := s.tagService.CreateTags(c.UserContext(), callerFrom(c), names)
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusCreated
	message := "Tag(s) processed successfully."
	if len(res.Created) == 0 {
		status = fiber.StatusOK
		message = "All tags already exist."
	}
	return c.Status(status).JSON(fiber.Map{
		"message":  message,
		"created":  res.Created,
		"existing": res.Existing,
	})
}

// UpdateTag handles PUT /api/v1/tags/update-tag/:tagId
func (s *Server) UpdateTag(c *fiber.Ctx) error {
	tagID, err := parseID(c, "tagId")
	if err != nil {
		return nil
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	tag, err := s.tagService.UpdateTag(c.UserContext(), callerFrom(c), tagID, req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Tag updated successfully.", "tag": tag})
}

// DeleteTag handles DELETE /api/v1/tags/delete-tag/:tagId
func (s *Server) DeleteTag(c *fiber.Ctx) error {
	tagID, err := parseID(c, "tagId")
	if err != nil {
		return nil
	}

	if err := s.tagService.DeleteTag(c.UserContext(), callerFrom(c), tagID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Tag deleted successfully.",
		"deleted": true,
		"tag_id":  tagID,
	})
}

// GetTag handles GET /api/v1/tags/get-tags/:tagId
func (s *Server) GetTag(c *fiber.Ctx) error {
	tagID, err := parseID(c, "tagId")
	if err != nil {
		return nil
	}

	tag, err := s.tagService.GetTag(c.UserContext(), tagID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"tag": tag})
}

// GetAllTags handles GET /api/v1/tags/get-all-tags
func (s *Server) GetAllTags(c *fiber.Ctx) error {
	tags, err := s.tagService.ListTags(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"tags": tags})
}
