package record

import (
	"maps"
	"slices"
	"time"
)

// Summary holds the fields of a record that come from a listing page. It is
// also what the listing decoder yields for each candidate item.
type Summary struct {
	ID               string `json:"id" bson:"id"`
	NameLocation     string `json:"name_location" bson:"name_location"`
	Status           string `json:"status" bson:"status"`
	PhotoURL         string `json:"photo_url" bson:"photo_url"`
	ProfileURL       string `json:"profile_url" bson:"profile_url"`
	AdditionalPhotos string `json:"additional_photos,omitempty" bson:"additional_photos,omitempty"`
}

// Detail holds the optional fields parsed from a detail page. A nil field
// means the page did not carry it, which is different from an empty value.
// Absent fields are left out of the JSON form; empty ones are kept.
type Detail struct {
	Data  map[string]string `json:"data,omitzero" bson:"data"`
	Goals []string          `json:"goals,omitzero" bson:"goals"`
	About *string           `json:"about,omitempty" bson:"about,omitempty"`
}

// Record is one listing entity tracked by its external ID.
type Record struct {
	Summary   `bson:",inline"`
	Detail    `bson:",inline"`
	FirstSeen time.Time `json:"first_seen" bson:"first_seen"`
	Score     float64   `json:"score" bson:"score"`
}

// New creates a record from a listing summary, stamped with firstSeen.
func New(s Summary, firstSeen time.Time) Record {
	return Record{
		Summary:   s,
		FirstSeen: firstSeen,
	}
}

// Empty reports whether the detail carries no fields at all.
func (d Detail) Empty() bool {
	return d.Data == nil && d.Goals == nil && d.About == nil
}

// Merge applies d on top of r field by field. Fields present in d overwrite
// the ones in r; absent fields leave r's values alone. Data is merged per
// key. The result shares no slices or maps with either input.
func Merge(r Record, d Detail) Record {
	out := r.Clone()

	if d.Data != nil {
		if out.Data == nil {
			out.Data = make(map[string]string, len(d.Data))
		}
		maps.Copy(out.Data, d.Data)
	}

	if d.Goals != nil {
		out.Goals = slices.Clone(d.Goals)
	}

	if d.About != nil {
		about := *d.About
		out.About = &about
	}

	return out
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	if r.Data != nil {
		out.Data = maps.Clone(r.Data)
	}
	if r.Goals != nil {
		out.Goals = slices.Clone(r.Goals)
	}
	if r.About != nil {
		about := *r.About
		out.About = &about
	}
	return out
}

// AboutText returns the description or an empty string when absent.
func (r Record) AboutText() string {
	if r.About == nil {
		return ""
	}
	return *r.About
}
