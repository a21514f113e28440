package resume

import (
	"slices"
	"strings"
	"time"
)

// Record is a parsed résumé owned by a single user and scoped to a college code.
type Record struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Namespace     string    `json:"collegeCode"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	SuggestedRole string    `json:"suggestedRole"`
	Experience    string    `json:"experience"`
	Skills        []string  `json:"skills"`
	Text          string    `json:"-"`
	UploadedAt    time.Time `json:"uploadDate"`
}

// Profile holds the structured fields an extractor recovers from raw résumé text.
type Profile struct {
	Name          string   `mapstructure:"name"`
	Email         string   `mapstructure:"email"`
	SuggestedRole string   `mapstructure:"suggestedRole"`
	Experience    string   `mapstructure:"experience"`
	Skills        []string `mapstructure:"skills"`
}

// Summary is the listing view of a record, without the experience text and skills.
type Summary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	SuggestedRole string    `json:"suggestedRole"`
	Namespace     string    `json:"collegeCode"`
	UploadedAt    time.Time `json:"uploadDate"`
}

// NewRecord builds a record for userID from an extracted profile.
// The id is left empty so the repository can keep an existing one on upsert.
func NewRecord(userID, namespace, text string, p Profile, uploadedAt time.Time) *Record {
	return &Record{
		UserID:        strings.TrimSpace(userID),
		Namespace:     strings.TrimSpace(namespace),
		Name:          p.Name,
		Email:         p.Email,
		SuggestedRole: p.SuggestedRole,
		Experience:    p.Experience,
		Skills:        slices.Clone(p.Skills),
		Text:          text,
		UploadedAt:    uploadedAt.UTC(),
	}
}

// Clone returns a deep copy so callers can hold a read-only snapshot.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Skills = slices.Clone(r.Skills)
	if c.Skills == nil {
		c.Skills = []string{}
	}
	return &c
}

func (r *Record) Summary() Summary {
	return Summary{
		ID:            r.ID,
		Name:          r.Name,
		Email:         r.Email,
		SuggestedRole: r.SuggestedRole,
		Namespace:     r.Namespace,
		UploadedAt:    r.UploadedAt,
	}
}

type Records struct {
	Items []*Record
}

func (r *Records) Len() int {
	return len(r.Items)
}

func (r *Records) IDs() []string {
	ids := make([]string, 0, len(r.Items))
	for _, v := range r.Items {
		ids = append(ids, v.ID)
	}
	return ids
}

func (r *Records) FindByID(id string) *Record {
	for _, rec := range r.Items {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

// SplitByNamespace keeps records whose namespace equals ns and returns the ids of the rest.
func (r *Records) SplitByNamespace(ns string) []string {
	var foreign []string
	kept := r.Items[:0]
	for _, rec := range r.Items {
		if rec.Namespace != ns {
			foreign = append(foreign, rec.ID)
			continue
		}
		kept = append(kept, rec)
	}
	r.Items = kept
	return foreign
}

func (r *Records) Summaries() []Summary {
	out := make([]Summary, 0, len(r.Items))
	for _, rec := range r.Items {
		out = append(out, rec.Summary())
	}
	return out
}
