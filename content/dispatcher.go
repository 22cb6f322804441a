package content

import "fmt"

// Dispatcher maps a Kind to its Collection.
type Dispatcher struct {
	collections map[Kind]Collection
	invoices    Collection
}

// NewDispatcher builds the collections over s. Mutations are published on
// s.Bus().
func NewDispatcher(s *Store) *Dispatcher {
	return &Dispatcher{
		collections: map[Kind]Collection{
			KindListings:  newCollection[Listing](s, KindListings, listingFields, s.Listings),
			KindBlogPosts: newCollection[BlogPost](s, KindBlogPosts, blogPostFields, s.Posts),
			KindPortfolio: newCollection[PortfolioItem](s, KindPortfolio, portfolioFields, s.Portfolio),
			KindUsers:     newCollection[User](s, KindUsers, userFields, s.Users),
			KindPages:     newCollection[Page](s, KindPages, pageFields, s.Pages),
		},
		invoices: newCollection[Invoice](s, KindInvoices, invoiceFields, s.Invoices),
	}
}

// Collection returns the collection for one of the five dispatchable kinds.
func (d *Dispatcher) Collection(k Kind) (Collection, error) {
	c, ok := d.collections[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return c, nil
}

// Invoices returns the invoice collection.
func (d *Dispatcher) Invoices() Collection {
	return d.invoices
}

// Lookup resolves an admin URL segment: one of the dispatchable kinds or
// "invoices".
func (d *Dispatcher) Lookup(name string) (Collection, error) {
	if Kind(name) == KindInvoices {
		return d.invoices, nil
	}
	k, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return d.Collection(k)
}
