package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

// Test helper: create a record with every field populated
func createTestRecord(id string) Record {
	return Record{
		Summary: Summary{
			ID:               id,
			NameLocation:     "Анна, 24, Москва",
			Status:           "online",
			PhotoURL:         "https://example.com/thumb/" + id + ".jpg",
			ProfileURL:       "https://example.com/anketa/" + id,
			AdditionalPhotos: "+2",
		},
		Detail: Detail{
			Data:  map[string]string{"height": "170", "weight": "55"},
			Goals: []string{"friendship", "travel"},
			About: strPtr("hello"),
		},
		FirstSeen: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Score:     1.5,
	}
}

// TestMerge_OverwritesPresentFields verifies present detail fields replace
// old ones
func TestMerge_OverwritesPresentFields(t *testing.T) {
	r := createTestRecord("1")

	merged := Merge(r, Detail{
		Goals: []string{"relationship"},
		About: strPtr("new text"),
	})

	assert.Equal(t, []string{"relationship"}, merged.Goals)
	require.NotNil(t, merged.About)
	assert.Equal(t, "new text", *merged.About)
}

// TestMerge_KeepsAbsentFields verifies absent detail fields leave old values
func TestMerge_KeepsAbsentFields(t *testing.T) {
	r := createTestRecord("1")

	merged := Merge(r, Detail{})

	assert.Equal(t, r.Data, merged.Data)
	assert.Equal(t, r.Goals, merged.Goals)
	assert.Equal(t, "hello", merged.AboutText())
	assert.Equal(t, r.FirstSeen, merged.FirstSeen)
}

// TestMerge_DataMergedPerKey verifies attribute maps merge key by key
func TestMerge_DataMergedPerKey(t *testing.T) {
	r := createTestRecord("1")

	merged := Merge(r, Detail{Data: map[string]string{"height": "172", "eyes": "green"}})

	assert.Equal(t, map[string]string{"height": "172", "weight": "55", "eyes": "green"}, merged.Data)
	assert.Equal(t, "170", r.Data["height"], "input record should not be mutated")
}

// TestMerge_EmptyGoalsReplace verifies a present but empty goals list clears
// the old one
func TestMerge_EmptyGoalsReplace(t *testing.T) {
	r := createTestRecord("1")

	merged := Merge(r, Detail{Goals: []string{}})

	assert.NotNil(t, merged.Goals)
	assert.Empty(t, merged.Goals)
}

// TestMerge_NilDataOnRecord verifies merging into a record without data
func TestMerge_NilDataOnRecord(t *testing.T) {
	r := New(Summary{ID: "9"}, time.Now())

	merged := Merge(r, Detail{Data: map[string]string{"height": "180"}})

	assert.Equal(t, "180", merged.Data["height"])
}

// TestClone_DeepCopy verifies clones share no mutable state
func TestClone_DeepCopy(t *testing.T) {
	r := createTestRecord("1")
	c := r.Clone()

	c.Data["height"] = "1"
	c.Goals[0] = "changed"
	*c.About = "changed"

	assert.Equal(t, "170", r.Data["height"])
	assert.Equal(t, "friendship", r.Goals[0])
	assert.Equal(t, "hello", *r.About)
}

// TestDetail_Empty verifies the empty detail check
func TestDetail_Empty(t *testing.T) {
	assert.True(t, Detail{}.Empty())
	assert.False(t, Detail{Goals: []string{}}.Empty())
	assert.False(t, Detail{About: strPtr("")}.Empty())
}

// TestRecord_JSONShape verifies the flat JSON layout and omission of absent
// optional fields
func TestRecord_JSONShape(t *testing.T) {
	r := New(Summary{ID: "42", NameLocation: "Ира"}, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "42", raw["id"])
	assert.Equal(t, "Ира", raw["name_location"])
	assert.Contains(t, raw, "first_seen")
	assert.Contains(t, raw, "score")
	assert.NotContains(t, raw, "data")
	assert.NotContains(t, raw, "goals")
	assert.NotContains(t, raw, "about")
	assert.NotContains(t, raw, "additional_photos")

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r.ID, back.ID)
	assert.True(t, r.FirstSeen.Equal(back.FirstSeen))
	assert.Nil(t, back.Data)
	assert.Nil(t, back.About)
}

// TestRecord_JSONKeepsEmptyDetail verifies empty data and goals survive a
// round trip as empty, not absent
func TestRecord_JSONKeepsEmptyDetail(t *testing.T) {
	r := New(Summary{ID: "43"}, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	r.Data = map[string]string{}
	r.Goals = []string{}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"data":{}`)
	assert.Contains(t, string(data), `"goals":[]`)

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	require.NotNil(t, back.Data)
	require.NotNil(t, back.Goals)
	assert.Empty(t, back.Data)
	assert.Empty(t, back.Goals)
	assert.False(t, back.Detail.Empty())
}
