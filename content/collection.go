package content

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
)

// Binder decodes request input (form values or a JSON body) into v, a
// pointer to a zero record of the collection's type.
type Binder func(v any) error

// Collection is the kind-agnostic CRUD surface used by the admin panel and
// the API.
type Collection interface {
	Kind() Kind
	Fields() []Field
	New() Item
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id string) (Item, error)
	Create(ctx context.Context, bind Binder) (Item, error)
	Update(ctx context.Context, id string, bind Binder) (Item, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]Item, error)
}

// repository is implemented by every typed repository in this package.
type repository[T Item] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, v T) (T, error)
	Update(ctx context.Context, id string, v T) (T, error)
	Delete(ctx context.Context, id string) error
}

type collection[T Item] struct {
	kind   Kind
	fields []Field
	repo   repository[T]
	store  *Store
}

func newCollection[T Item](s *Store, kind Kind, fields []Field, repo repository[T]) *collection[T] {
	return &collection[T]{kind: kind, fields: fields, repo: repo, store: s}
}

func (c *collection[T]) Kind() Kind      { return c.kind }
func (c *collection[T]) Fields() []Field { return c.fields }

func (c *collection[T]) New() Item {
	var zero T
	return zero
}

func (c *collection[T]) List(ctx context.Context) ([]Item, error) {
	items, err := c.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return toItems(items), nil
}

func (c *collection[T]) Get(ctx context.Context, id string) (Item, error) {
	v, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (c *collection[T]) Create(ctx context.Context, bind Binder) (Item, error) {
	var v T
	if err := bind(&v); err != nil {
		return nil, err
	}
	created, err := c.repo.Create(ctx, v)
	if err != nil {
		return nil, err
	}
	c.store.publish(c.kind, OpCreate, created.ItemID())
	return created, nil
}

func (c *collection[T]) Update(ctx context.Context, id string, bind Binder) (Item, error) {
	var v T
	if err := bind(&v); err != nil {
		return nil, err
	}
	updated, err := c.repo.Update(ctx, id, v)
	if err != nil {
		return nil, err
	}
	c.store.publish(c.kind, OpUpdate, id)
	return updated, nil
}

func (c *collection[T]) Delete(ctx context.Context, id string) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}
	c.store.publish(c.kind, OpDelete, id)
	return nil
}

func (c *collection[T]) Search(ctx context.Context, query string) ([]Item, error) {
	items, err := c.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return toItems(Filter(items, query)), nil
}

// Filter keeps the items whose JSON encoding contains query, ignoring case.
// An empty query keeps everything.
func Filter[T any](items []T, query string) []T {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	var out []T
	for _, it := range items {
		if strings.Contains(strings.ToLower(searchText(it)), query) {
			out = append(out, it)
		}
	}
	return out
}

// searchText is the JSON form of v without HTML escaping, so that queries
// containing <, > or & match literally.
func searchText(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return buf.String()
}

func toItems[T Item](in []T) []Item {
	out := make([]Item, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
