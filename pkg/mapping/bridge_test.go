package mapping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type status string

type audit struct {
	CreatedAt time.Time
}

type product struct {
	audit
	ID          string
	Name        string
	Price       int64
	Description *string
	Tags        []string
	Status      status
	Version     int
}

type createProduct struct {
	Name        string
	Price       int64
	Description *string
	Tags        []string
	Status      string
}

type patchProduct struct {
	Name        Field[string]   `json:"name,omitzero"`
	Price       Field[int64]    `json:"price,omitzero"`
	Description Field[string]   `json:"description,omitzero"`
	Tags        Field[[]string] `json:"tags,omitzero"`
	Status      *string         `json:"status,omitempty"`
}

type productOutput struct {
	ID          string
	Name        string
	Price       int64
	Description *string
	Tags        []string
	Status      string
	CreatedAt   time.Time
}

func newProductBridge(t *testing.T) *Bridge[product, createProduct, patchProduct, productOutput] {
	b, err := NewBridge[product, createProduct, patchProduct, productOutput]()
	require.NoError(t, err)
	return b
}

func TestBridge_RoundTripPreservesInput(t *testing.T) {
	b := newProductBridge(t)
	desc := "wool"
	in := createProduct{Name: "Hat", Price: 1999, Description: &desc, Tags: []string{"winter"}, Status: "draft"}
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	e, err := b.ToModel(in, map[string]any{"ID": "p-1", "CreatedAt": created, "Version": 1})
	require.NoError(t, err)
	out := b.ToOutput(e)

	assert.Equal(t, productOutput{
		ID:          "p-1",
		Name:        in.Name,
		Price:       in.Price,
		Description: in.Description,
		Tags:        in.Tags,
		Status:      in.Status,
		CreatedAt:   created,
	}, out)
	assert.Equal(t, 1, e.Version)
}

func TestBridge_ToModelExtras(t *testing.T) {
	b := newProductBridge(t)

	t.Run("unknown extra", func(t *testing.T) {
		_, err := b.ToModel(createProduct{}, map[string]any{"Sku": "x"})
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("extra of the wrong type", func(t *testing.T) {
		_, err := b.ToModel(createProduct{}, map[string]any{"Version": "one"})
		assert.ErrorIs(t, err, ErrFieldType)
	})

	t.Run("extras win over input", func(t *testing.T) {
		e, err := b.ToModel(createProduct{Name: "Hat"}, map[string]any{"Name": "Cap"})
		require.NoError(t, err)
		assert.Equal(t, "Cap", e.Name)
	})

	t.Run("nil extra", func(t *testing.T) {
		_, err := b.ToModel(createProduct{}, map[string]any{"Price": nil})
		assert.ErrorIs(t, err, ErrNotNullable)

		e, err := b.ToModel(createProduct{Tags: []string{"a"}}, map[string]any{"Tags": nil})
		require.NoError(t, err)
		assert.Nil(t, e.Tags)
	})
}

func TestBridge_ApplyPatch(t *testing.T) {
	b := newProductBridge(t)
	desc := "wool"
	original := func() *product {
		return &product{
			audit:       audit{CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			ID:          "p-1",
			Name:        "Hat",
			Price:       1999,
			Description: &desc,
			Tags:        []string{"winter"},
			Status:      "draft",
			Version:     3,
		}
	}

	t.Run("only the set field changes", func(t *testing.T) {
		e := original()

		changed, err := b.ApplyPatch(e, patchProduct{Price: Set[int64](2499)})

		require.NoError(t, err)
		assert.Equal(t, []string{"Price"}, changed)
		want := original()
		want.Price = 2499
		assert.Equal(t, want, e)
	})

	t.Run("null clears a nilable field", func(t *testing.T) {
		e := original()

		changed, err := b.ApplyPatch(e, patchProduct{Description: Null[string](), Tags: Null[[]string]()})

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Description", "Tags"}, changed)
		assert.Nil(t, e.Description)
		assert.Nil(t, e.Tags)
	})

	t.Run("null on a value field fails without writing", func(t *testing.T) {
		e := original()

		_, err := b.ApplyPatch(e, patchProduct{Price: Set[int64](1), Name: Null[string]()})

		assert.ErrorIs(t, err, ErrNotNullable)
		assert.Equal(t, original(), e)
	})

	t.Run("setting the current value reports no change", func(t *testing.T) {
		e := original()

		changed, err := b.ApplyPatch(e, patchProduct{Name: Set("Hat")})

		require.NoError(t, err)
		assert.Empty(t, changed)
	})

	t.Run("pointer fields patch when non-nil", func(t *testing.T) {
		e := original()
		active := "active"

		changed, err := b.ApplyPatch(e, patchProduct{Status: &active, Description: Set("cotton")})

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Status", "Description"}, changed)
		assert.Equal(t, status("active"), e.Status)
		assert.Equal(t, "cotton", *e.Description)
	})

	t.Run("nil entity", func(t *testing.T) {
		_, err := b.ApplyPatch(nil, patchProduct{})
		assert.ErrorIs(t, err, ErrNilEntity)
	})
}

func TestBridge_ToOutputs(t *testing.T) {
	b := newProductBridge(t)

	out := b.ToOutputs([]*product{{ID: "a", Name: "A"}, nil, {ID: "c", Status: "active"}})

	require.Len(t, out, 3)
	assert.Equal(t, "A", out[0].Name)
	assert.Equal(t, productOutput{}, out[1])
	assert.Equal(t, "active", out[2].Status)
	assert.Equal(t, productOutput{}, b.ToOutput(nil))
}

func TestNewBridge_Incompatible(t *testing.T) {
	type entity struct {
		ID    string
		Count int
	}
	type okCreate struct{ Count int }
	type okPatch struct{ Count Field[int] }
	type okOutput struct{ ID string }

	t.Run("input field missing on entity", func(t *testing.T) {
		type create struct{ Title string }
		_, err := NewBridge[entity, create, okPatch, okOutput]()

		var planErr *PlanError
		require.ErrorAs(t, err, &planErr)
		assert.Equal(t, "Title", planErr.Field)
	})

	t.Run("type mismatch", func(t *testing.T) {
		type create struct{ Count string }
		_, err := NewBridge[entity, create, okPatch, okOutput]()
		assert.Error(t, err)
	})

	t.Run("plain patch field", func(t *testing.T) {
		type patch struct{ Count int }
		_, err := NewBridge[entity, okCreate, patch, okOutput]()
		assert.ErrorContains(t, err, "mapping.Field or a pointer")
	})

	t.Run("output field missing on entity", func(t *testing.T) {
		type output struct{ Name string }
		_, err := NewBridge[entity, okCreate, okPatch, output]()
		assert.Error(t, err)
	})

	t.Run("renamed and hidden fields", func(t *testing.T) {
		type create struct {
			Amount int    `mapping:"Count"`
			Note   string `mapping:"-"`
		}
		b, err := NewBridge[entity, create, okPatch, okOutput]()
		require.NoError(t, err)

		e, err := b.ToModel(create{Amount: 4, Note: "ignored"}, nil)
		require.NoError(t, err)
		assert.Equal(t, 4, e.Count)
	})

	t.Run("non-struct types", func(t *testing.T) {
		_, err := NewBridge[entity, okCreate, okPatch, string]()
		assert.Error(t, err)
	})
}
