package tastings

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasting_bot/pkg"
)

func seed(t *testing.T, s *Store, items ...pkg.Tasting) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		id, err := s.Create(context.Background(), it)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func names(p pkg.Page) []string {
	out := make([]string, len(p.Items))
	for i, t := range p.Items {
		out[i] = t.Name
	}
	return out
}

func TestFindPagination(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i := 1; i <= 7; i++ {
		seed(t, s, pkg.Tasting{OwnerID: 1, Name: fmt.Sprintf("tea %d", i)})
	}
	seed(t, s, pkg.Tasting{OwnerID: 2, Name: "someone else's"})

	page, err := s.FindRecent(ctx, 1, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"tea 7", "tea 6", "tea 5", "tea 4", "tea 3"}, names(page))
	assert.True(t, page.HasMore)
	assert.Equal(t, page.Items[4].ID, page.NextCursor)

	page, err = s.FindRecent(ctx, 1, page.NextCursor, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"tea 2", "tea 1"}, names(page))
	assert.False(t, page.HasMore)

	// exactly one full page
	page, err = s.FindRecent(ctx, 1, 0, 7)
	require.NoError(t, err)
	assert.Len(t, page.Items, 7)
	assert.False(t, page.HasMore)

	empty, err := s.FindRecent(ctx, 3, 0, 5)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Zero(t, empty.NextCursor)
}

func TestFindFilters(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	seed(t, s,
		pkg.Tasting{OwnerID: 1, Name: "Silver Needle", Category: "White", Year: ptr(2021), Rating: 9},
		pkg.Tasting{OwnerID: 1, Name: "Golden needle", Category: "Red", Year: ptr(2020), Rating: 6},
		pkg.Tasting{OwnerID: 1, Name: "100% Puer", Category: "Shou Puer", Rating: 7},
		pkg.Tasting{OwnerID: 2, Name: "Needle of another owner", Category: "White", Year: ptr(2021), Rating: 10},
	)

	tests := []struct {
		name string
		q    pkg.Query
		want []string
	}{
		{"substring ignores case", pkg.Query{Kind: pkg.QueryName, OwnerID: 1, Text: "NEEDLE"}, []string{"Golden needle", "Silver Needle"}},
		{"percent is literal", pkg.Query{Kind: pkg.QueryName, OwnerID: 1, Text: "0%"}, []string{"100% Puer"}},
		{"underscore is literal", pkg.Query{Kind: pkg.QueryName, OwnerID: 1, Text: "_"}, nil},
		{"category ignores case", pkg.Query{Kind: pkg.QueryCategory, OwnerID: 1, Category: " white "}, []string{"Silver Needle"}},
		{"year", pkg.Query{Kind: pkg.QueryYear, OwnerID: 1, Year: 2020}, []string{"Golden needle"}},
		{"min rating is inclusive", pkg.Query{Kind: pkg.QueryMinRating, OwnerID: 1, MinRating: 7}, []string{"100% Puer", "Silver Needle"}},
		{"other owner", pkg.Query{Kind: pkg.QueryName, OwnerID: 2, Text: "needle"}, []string{"Needle of another owner"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.Find(ctx, tt.q, 0, 10)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, page.Items)
				return
			}
			assert.Equal(t, tt.want, names(page))
		})
	}

	_, err := s.Find(ctx, pkg.Query{Kind: "bogus", OwnerID: 1}, 0, 5)
	assert.Error(t, err)
}

func TestFindHelpers(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seed(t, s, pkg.Tasting{OwnerID: 1, Name: "Jin Xuan", Category: "Oolong", Year: ptr(2022), Rating: 8})

	for _, find := range []func() (pkg.Page, error){
		func() (pkg.Page, error) { return s.FindBySubstring(ctx, 1, "xuan", 0, 0) },
		func() (pkg.Page, error) { return s.FindByCategory(ctx, 1, "oolong", 0, 0) },
		func() (pkg.Page, error) { return s.FindByYear(ctx, 1, 2022, 0, 0) },
		func() (pkg.Page, error) { return s.FindByMinRating(ctx, 1, 8, 0, 0) },
	} {
		page, err := find()
		require.NoError(t, err)
		assert.Equal(t, []string{"Jin Xuan"}, names(page))
	}
}
