package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
	"quill/internal/validation"
)

const maxTagNameLength = 100

type TagService struct {
	tx    repository.Transactor
	tags  repository.TagRepository
	links repository.PostTagRepository
	audit *observability.MutationLogger
}

// CreateTagsResult splits the requested names into new and already known tags.
type CreateTagsResult struct {
	Created  []models.Tag
	Existing []string
}

func NewTagService(tx repository.Transactor, tags repository.TagRepository, links repository.PostTagRepository) *TagService {
	return &TagService{
		tx:    tx,
		tags:  tags,
		links: links,
		audit: observability.NewMutationLogger("tag"),
	}
}

// CreateTags creates every name not yet stored. Names are trimmed,
// de-duplicated and compared case-sensitively.
func (s *TagService) CreateTags(ctx context.Context, caller models.Identity, names []string) (*CreateTagsResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	names = validation.NormalizeTagNames(names)
	if len(names) == 0 {
		return nil, models.NewValidationError("At least one tag name is required.")
	}
	for _, name := range names {
		if err := checkTagName(name); err != nil {
			return nil, err
		}
	}

	result := &CreateTagsResult{Created: []models.Tag{}, Existing: []string{}}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		found, err := s.tags.FindByNames(ctx, names)
		if err != nil {
			return internalError(err)
		}
		known := make(map[string]struct{}, len(found))
		for _, t := range found {
			known[t.Name] = struct{}{}
		}

		fresh := make([]*models.Tag, 0, len(names))
		for _, name := range names {
			if _, ok := known[name]; ok {
				result.Existing = append(result.Existing, name)
				continue
			}
			fresh = append(fresh, &models.Tag{Name: name})
		}

		if err := s.tags.CreateMany(ctx, fresh); err != nil {
			if repository.IsUniqueViolation(err) {
				return models.NewConflictError("Tag name already exists.")
			}
			return internalError(err)
		}
		for _, t := range fresh {
			result.Created = append(result.Created, *t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Created) > 0 {
		s.audit.LogCreate(ctx, "count", len(result.Created))
	}
	return result, nil
}

func (s *TagService) UpdateTag(ctx context.Context, caller models.Identity, id uint, name string) (*models.Tag, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	name = validation.SanitizeText(name)
	if name == "" {
		return nil, models.NewValidationError("Tag name is required.")
	}
	if err := checkTagName(name); err != nil {
		return nil, err
	}

	tag := &models.Tag{ID: id, Name: name}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		ok, err := s.tags.Exists(ctx, id)
		if err != nil {
			return internalError(err)
		}
		if !ok {
			return models.NewNotFoundError("Tag", id)
		}

		taken, err := s.tags.NameTakenByOther(ctx, name, id)
		if err != nil {
			return internalError(err)
		}
		if taken {
			return models.NewConflictError("Tag name already exists.")
		}

		if err := s.tags.Rename(ctx, id, name); err != nil {
			if repository.IsUniqueViolation(err) {
				return models.NewConflictError("Tag name already exists.")
			}
			return internalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogUpdate(ctx, "tag_id", id)
	return tag, nil
}

// DeleteTag removes a tag and its post links in one transaction.
func (s *TagService) DeleteTag(ctx context.Context, caller models.Identity, id uint) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		ok, err := s.tags.Exists(ctx, id)
		if err != nil {
			return internalError(err)
		}
		if !ok {
			return models.NewNotFoundError("Tag", id)
		}
		if err := s.links.DeleteByTag(ctx, id); err != nil {
			return internalError(err)
		}
		if _, err := s.tags.Delete(ctx, id); err != nil {
			return internalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.LogDelete(ctx, "tag_id", id)
	return nil
}

func (s *TagService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	tag, err := s.tags.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, models.NewNotFoundError("Tag", id))
	}
	return tag, nil
}

// ListTags returns every tag ordered by name.
func (s *TagService) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}

func checkTagName(name string) error {
	if utf8.RuneCountInString(name) > maxTagNameLength {
		return models.NewValidationError(fmt.Sprintf("Tag name must not exceed %d characters.", maxTagNameLength))
	}
	return nil
}
