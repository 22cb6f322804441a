package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// SnapshotVersion is written to every export and checked on import.
const SnapshotVersion = 1

// Snapshot is a complete copy of the site content.
type Snapshot struct {
	Version    int              `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Listings   []Listing        `json:"listings"`
	BlogPosts  []BlogPost       `json:"blog_posts"`
	Portfolio  []PortfolioItem  `json:"portfolio"`
	Users      []SnapshotUser   `json:"users"`
	Pages      []Page           `json:"pages"`
	Invoices   []Invoice        `json:"invoices"`
	Messages   []ContactMessage `json:"messages"`
	Images     []Image          `json:"images"`
	Homepage   *HomeContent     `json:"homepage,omitempty"`
}

// SnapshotUser carries the password hash that User never serializes.
type SnapshotUser struct {
	User
	PasswordHash string `json:"password_hash"`
}

// Snapshot reads every table into memory.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Version: SnapshotVersion, ExportedAt: s.now().UTC()}
	var err error
	if snap.Listings, err = s.Listings.List(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("export listings: %w", err)
	}
	if snap.BlogPosts, err = s.Posts.List(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("export posts: %w", err)
	}
	if snap.Portfolio, err = s.Portfolio.List(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("export portfolio: %w", err)
	}
	users, err := s.Users.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("export users: %w", err)
	}
	for _, u := range users {
		snap.Users = append(snap.Users, SnapshotUser{User: u, PasswordHash: u.PasswordHash})
	}
	if snap.Pages, err = s.Pages.List(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("export pages: %w", err)
	}
	if snap.Invoices, err = s.Invoices.List(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("export invoices: %w", err)
	}
	if snap.Messages, err = s.Messages.List(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("export messages: %w", err)
	}
	if snap.Images, err = s.Images.List(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("export images: %w", err)
	}
	raw, err := s.GetSetting(ctx, HomepageKey)
	if err != nil {
		return Snapshot{}, fmt.Errorf("export homepage: %w", err)
	}
	if raw != "" {
		var h HomeContent
		if err := json.Unmarshal([]byte(raw), &h); err != nil {
			return Snapshot{}, fmt.Errorf("decode %s: %w", HomepageKey, err)
		}
		snap.Homepage = &h
	}
	return snap, nil
}

// Export writes the snapshot as indented JSON.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Import replaces all content with the snapshot read from r. Nothing is
// changed when decoding or any insert fails.
func (s *Store) Import(ctx context.Context, r io.Reader) error {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	return s.Restore(ctx, snap)
}

// Restore replaces all content with snap inside one transaction.
func (s *Store) Restore(ctx context.Context, snap Snapshot) error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"listings", "blog_posts", "portfolio_items", "users", "pages",
			"invoices", "contact_messages", "images"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, HomepageKey); err != nil {
			return err
		}
		for _, v := range snap.Listings {
			if err := insertListing(ctx, tx, v); err != nil {
				return fmt.Errorf("listing %s: %w", v.Slug, err)
			}
		}
		for _, v := range snap.BlogPosts {
			if err := insertPost(ctx, tx, v); err != nil {
				return fmt.Errorf("post %s: %w", v.Slug, err)
			}
		}
		for _, v := range snap.Portfolio {
			if err := insertPortfolioItem(ctx, tx, v); err != nil {
				return fmt.Errorf("portfolio item %s: %w", v.Slug, err)
			}
		}
		for _, v := range snap.Users {
			u := v.User
			u.PasswordHash = v.PasswordHash
			if err := insertUser(ctx, tx, u); err != nil {
				return fmt.Errorf("user %s: %w", u.Email, err)
			}
		}
		for _, v := range snap.Pages {
			if err := insertPage(ctx, tx, v); err != nil {
				return fmt.Errorf("page %s: %w", v.Slug, err)
			}
		}
		for _, v := range snap.Invoices {
			if err := insertInvoice(ctx, tx, v); err != nil {
				return fmt.Errorf("invoice %s: %w", v.Number, err)
			}
		}
		for _, v := range snap.Messages {
			if err := insertMessage(ctx, tx, v); err != nil {
				return fmt.Errorf("message %s: %w", v.ID, err)
			}
		}
		for _, v := range snap.Images {
			if err := insertImage(ctx, tx, v); err != nil {
				return fmt.Errorf("image %s: %w", v.Filename, err)
			}
		}
		if snap.Homepage != nil {
			if err := saveHomepage(ctx, tx, *snap.Homepage); err != nil {
				return fmt.Errorf("homepage: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(KindAll, OpReplace, "")
	return nil
}
