package models

// Tag is a unique label that can be attached to posts.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
}

// TableName pins the tags table name.
func (Tag) TableName() string { return "tags" }

// PostTag links a post to a tag. At most one row exists per (post, tag).
type PostTag struct {
	ID     uint  `gorm:"primaryKey" json:"id"`
	PostID uint  `gorm:"not null;uniqueIndex:idx_post_tags_post_tag" json:"post_id"`
	Post   *Post `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	TagID  uint  `gorm:"not null;uniqueIndex:idx_post_tags_post_tag;index" json:"tag_id"`
	Tag    *Tag  `json:"-"`
}

// TableName pins the post_tags table name.
func (PostTag) TableName() string { return "post_tags" }
