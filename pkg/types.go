package pkg

import (
	"strconv"
	"strings"
	"time"
)

// Tasting Core Types shared by the dialogue engine, the repository and the renderers

// Tasting is the persisted parent record of one completed intake flow
type Tasting struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id" validate:"required"`
	CreatedAt time.Time `json:"created_at"`

	Name     string  `json:"name" validate:"required"`
	Year     *int    `json:"year,omitempty"`
	Region   *string `json:"region,omitempty"`
	Category string  `json:"category"`

	Grams    *float64 `json:"grams,omitempty"`
	TempC    *int     `json:"temp_c,omitempty"`
	TastedAt *string  `json:"tasted_at,omitempty"` // "HH:MM" local to the owner
	Gear     *string  `json:"gear,omitempty"`

	AromaDry    *string `json:"aroma_dry,omitempty"`
	AromaWarmed *string `json:"aroma_warmed,omitempty"`

	Effects   *string `json:"effects,omitempty"`
	Scenarios *string `json:"scenarios,omitempty"`

	Rating  int     `json:"rating" validate:"gte=0,lte=10"`
	Summary *string `json:"summary,omitempty"`

	Infusions   []Infusion   `json:"infusions,omitempty" validate:"dive"`
	Attachments []Attachment `json:"attachments,omitempty" validate:"dive"`
}

// Title renders "[category] name (year, region)"
func (t Tasting) Title() string {
	title := "[" + t.Category + "] " + t.Name
	var extra []string
	if t.Year != nil && *t.Year != 0 {
		extra = append(extra, strconv.Itoa(*t.Year))
	}
	if t.Region != nil && *t.Region != "" {
		extra = append(extra, *t.Region)
	}
	if len(extra) > 0 {
		title += " (" + strings.Join(extra, ", ") + ")"
	}
	return title
}

// Infusion is one numbered steep of a tasting
type Infusion struct {
	N            int     `json:"n" validate:"gte=1"`
	Seconds      *int    `json:"seconds,omitempty"`
	LiquorColor  *string `json:"liquor_color,omitempty"`
	Taste        *string `json:"taste,omitempty"`
	SpecialNotes *string `json:"special_notes,omitempty"`
	Body         *string `json:"body,omitempty"`
	Aftertaste   *string `json:"aftertaste,omitempty"`
}

// Attachment is an opaque file handle issued by the chat transport
type Attachment struct {
	FileID string `json:"file_id" validate:"required"`
}

// User holds per-owner settings
type User struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	TZOffsetMin int       `json:"tz_offset_min"` // minutes east of UTC
}

// QueryKind selects the search filter
type QueryKind string

const (
	QueryRecent    QueryKind = "last"
	QueryName      QueryKind = "name"
	QueryCategory  QueryKind = "cat"
	QueryYear      QueryKind = "year"
	QueryMinRating QueryKind = "rating"
)

// Query is a per-owner search request; only the field matching Kind is used
type Query struct {
	Kind      QueryKind `json:"type"`
	OwnerID   int64     `json:"uid"`
	Text      string    `json:"q,omitempty"`
	Category  string    `json:"cat,omitempty"`
	Year      int       `json:"year,omitempty"`
	MinRating int       `json:"thr,omitempty"`
}

// Page is one keyset-paginated slice of search results, newest first
type Page struct {
	Items []Tasting `json:"items"`
	// NextCursor is the smallest id on this page; pass it back to continue.
	NextCursor int64 `json:"next_cursor"`
	HasMore    bool  `json:"has_more"`
	// Token identifies the stored query context for continuation.
	Token string `json:"token,omitempty"`
}
