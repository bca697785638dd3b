package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hesab/internal/core"
	"hesab/internal/storage/memory"
)

func TestDefaultCategories(t *testing.T) {
	cats, err := DefaultCategories()
	require.NoError(t, err)
	require.Len(t, cats, 8)

	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
		assert.True(t, c.IsDefault)
		assert.NotEmpty(t, c.Icon)
	}
	assert.Contains(t, names, core.OtherCategory)
	assert.Equal(t, core.CategoryIncome, cats[6].Type)
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	n, err := Seed(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	_, err = Seed(ctx, store)
	require.NoError(t, err)

	cats, err := store.ListCategories(ctx, "anyone")
	require.NoError(t, err)
	assert.Len(t, cats, 8)
}

func TestParseRejectsBadType(t *testing.T) {
	_, err := parse([]byte("categories:\n  - name: x\n    type: transfer\n"))
	assert.ErrorIs(t, err, core.ErrInvalidKind)

	_, err = parse([]byte("categories: ["))
	assert.Error(t, err)
}
