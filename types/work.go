package types

import (
	"database/sql/driver"
	"strings"
	"time"
)

// Status is the moderation state of a work.
type Status int

// Supported status values.
const (
	// StatusUnknown is the zero value and is never stored.
	StatusUnknown Status = iota

	// StatusPending indicates the work awaits a moderation decision.
	StatusPending

	// StatusApproved indicates the work is visible in the catalog.
	StatusApproved

	// StatusRejected indicates the work was refused by a moderator.
	StatusRejected
)

var statusNames = enumNames[Status]{
	StatusPending:  "pending",
	StatusApproved: "approved",
	StatusRejected: "rejected",
}

// ParseStatus converts a wire name into a Status.
func ParseStatus(raw string) (Status, error) { return statusNames.parse("status", raw) }

func (s Status) String() string { return statusNames.name(s) }

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) MarshalText() ([]byte, error) { return statusNames.marshal("status", s) }

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Status) Value() (driver.Value, error) { return statusNames.value("status", s) }

func (s *Status) Scan(src any) error {
	v, err := statusNames.scan("status", src)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Category classifies the kind of asset a work contains.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryVectors
	CategoryPhotos
	CategoryIcons
	CategoryPSD
	CategoryAI
	CategoryTemplates
)

var categoryNames = enumNames[Category]{
	CategoryVectors:   "vectors",
	CategoryPhotos:    "photos",
	CategoryIcons:     "icons",
	CategoryPSD:       "psd",
	CategoryAI:        "ai",
	CategoryTemplates: "templates",
}

// ParseCategory converts a wire name into a Category.
func ParseCategory(raw string) (Category, error) { return categoryNames.parse("category", raw) }

func (c Category) String() string { return categoryNames.name(c) }

func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

func (c Category) MarshalText() ([]byte, error) { return categoryNames.marshal("category", c) }

func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c Category) Value() (driver.Value, error) { return categoryNames.value("category", c) }

func (c *Category) Scan(src any) error {
	v, err := categoryNames.scan("category", src)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// License is the usage license attached to a work. It is a tag only;
// nothing in the catalog enforces it.
type License int

const (
	LicenseUnknown License = iota
	LicenseFree
	LicensePersonal
	LicenseCommercial
)

var licenseNames = enumNames[License]{
	LicenseFree:       "free",
	LicensePersonal:   "personal",
	LicenseCommercial: "commercial",
}

// ParseLicense converts a wire name into a License.
func ParseLicense(raw string) (License, error) { return licenseNames.parse("license", raw) }

func (l License) String() string { return licenseNames.name(l) }

func (l License) Valid() bool {
	_, ok := licenseNames[l]
	return ok
}

func (l License) MarshalText() ([]byte, error) { return licenseNames.marshal("license", l) }

func (l *License) UnmarshalText(b []byte) error {
	v, err := ParseLicense(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

func (l License) Value() (driver.Value, error) { return licenseNames.value("license", l) }

func (l *License) Scan(src any) error {
	v, err := licenseNames.scan("license", src)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Work represents a submitted creative asset together with its
// moderation status.
type Work struct {
	// ID is the unique identifier of the work.
	ID string `json:"id" db:"id"`

	// Title is the human-readable name of the work.
	Title string `json:"title" db:"title"`

	// Description is the author's free-form description.
	Description string `json:"description" db:"description"`

	// Category classifies the asset.
	Category Category `json:"category" db:"category"`

	// License is the usage license tag chosen by the author.
	License License `json:"license" db:"license"`

	// Tags are unique free-form labels. Their order carries no meaning.
	Tags []string `json:"tags" db:"tags"`

	// ImageURL points at the preview image in object storage, if any.
	ImageURL string `json:"image_url,omitempty" db:"image_url"`

	// ImageKey is the object storage key behind ImageURL.
	ImageKey string `json:"-" db:"image_key"`

	// AuthorID identifies the owning user. It is set at creation and
	// never reassigned.
	AuthorID string `json:"author_id" db:"author_id"`

	// AuthorName is a snapshot of the author's name at submission time.
	AuthorName string `json:"author_name" db:"author_name"`

	// AuthorAvatar is a snapshot of the author's avatar at submission time.
	AuthorAvatar string `json:"author_avatar,omitempty" db:"author_avatar"`

	// Likes and Downloads are counters maintained outside the catalog core.
	Likes     int `json:"likes" db:"likes"`
	Downloads int `json:"downloads" db:"downloads"`

	// Status is the moderation state.
	Status Status `json:"status" db:"status"`

	// CreatedAt is the timestamp at which the work was submitted.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent moderation decision.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// WorkInput is the author-supplied part of a submission.
type WorkInput struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required"`
	Category    Category `json:"category" validate:"required"`
	License     License  `json:"license" validate:"required"`
	Tags        []string `json:"tags" validate:"max=32,dive,max=64"`

	// ImageBase64 is an optional preview image, raw base64 or a data URL.
	ImageBase64 string `json:"image_base64,omitempty"`
}

// Normalize trims text fields and reduces Tags to a set.
func (in WorkInput) Normalize() WorkInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageBase64 = strings.TrimSpace(in.ImageBase64)
	in.Tags = NormalizeTags(in.Tags)
	return in
}

// NormalizeTags trims tags, drops empty ones and removes duplicates,
// keeping the first occurrence.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// WorkFilter selects works by optional criteria. Zero fields match
// everything; set fields are ANDed.
type WorkFilter struct {
	Status   Status
	Category Category
	AuthorID string
}

// Matches reports whether w satisfies the filter.
func (f WorkFilter) Matches(w Work) bool {
	if f.Status != StatusUnknown && w.Status != f.Status {
		return false
	}
	if f.Category != CategoryUnknown && w.Category != f.Category {
		return false
	}
	if f.AuthorID != "" && w.AuthorID != f.AuthorID {
		return false
	}
	return true
}

// WorkPatch carries the mutable fields of a work. Nil fields are left
// untouched. ID, AuthorID and CreatedAt are not patchable.
type WorkPatch struct {
	Title        *string
	Description  *string
	Category     *Category
	License      *License
	Tags         []string
	ImageURL     *string
	AuthorName   *string
	AuthorAvatar *string
	Likes        *int
	Downloads    *int
	Status       *Status
	UpdatedAt    *time.Time
}

// PatchFrom builds a patch that overwrites every mutable field with the
// values of a canonical record.
func PatchFrom(w Work) WorkPatch {
	tags := w.Tags
	if tags == nil {
		tags = []string{}
	}
	return WorkPatch{
		Title:        &w.Title,
		Description:  &w.Description,
		Category:     &w.Category,
		License:      &w.License,
		Tags:         tags,
		ImageURL:     &w.ImageURL,
		AuthorName:   &w.AuthorName,
		AuthorAvatar: &w.AuthorAvatar,
		Likes:        &w.Likes,
		Downloads:    &w.Downloads,
		Status:       &w.Status,
		UpdatedAt:    &w.UpdatedAt,
	}
}

// Apply returns a copy of w with the patch applied.
func (p WorkPatch) Apply(w Work) Work {
	if p.Title != nil {
		w.Title = *p.Title
	}
	if p.Description != nil {
		w.Description = *p.Description
	}
	if p.Category != nil {
		w.Category = *p.Category
	}
	if p.License != nil {
		w.License = *p.License
	}
	if p.Tags != nil {
		w.Tags = append([]string(nil), p.Tags...)
	}
	if p.ImageURL != nil {
		w.ImageURL = *p.ImageURL
	}
	if p.AuthorName != nil {
		w.AuthorName = *p.AuthorName
	}
	if p.AuthorAvatar != nil {
		w.AuthorAvatar = *p.AuthorAvatar
	}
	if p.Likes != nil {
		w.Likes = *p.Likes
	}
	if p.Downloads != nil {
		w.Downloads = *p.Downloads
	}
	if p.Status != nil {
		w.Status = *p.Status
	}
	if p.UpdatedAt != nil {
		w.UpdatedAt = *p.UpdatedAt
	}
	return w
}
