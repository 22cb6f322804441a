// Package seed loads the demo content shipped with metalworks into a store.
//
// Fixtures are YAML files named after the record kind they hold
// (listings.yaml, blog-posts.yaml, ...). homepage.yaml holds the homepage
// document. Seeding is idempotent per kind: a kind that already has records
// is left alone.
package seed

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eringen/metalworks/content"
)

// Fixtures contains the bundled YAML fixture files.
//
//go:embed fixtures/*.yaml
var Fixtures embed.FS

const homepageFile = "homepage.yaml"

// Result reports what a seed run did, per kind.
type Result struct {
	Created map[content.Kind]int
	Skipped []content.Kind
}

// Load seeds store from the bundled fixtures.
func Load(ctx context.Context, store *content.Store) (Result, error) {
	return LoadFS(ctx, store, Fixtures, "fixtures")
}

// LoadFS seeds store from the YAML files under root in fsys.
func LoadFS(ctx context.Context, store *content.Store, fsys fs.FS, root string) (Result, error) {
	res := Result{Created: map[content.Kind]int{}}
	d := content.NewDispatcher(store)

	var files []string
	err := fs.WalkDir(fsys, root, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !e.IsDir() && strings.HasSuffix(p, ".yaml") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	sort.Strings(files)

	for _, p := range files {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return res, fmt.Errorf("read %s: %w", p, err)
		}
		name := path.Base(p)
		if name == homepageFile {
			created, err := seedHomepage(ctx, store, data)
			if err != nil {
				return res, fmt.Errorf("%s: %w", p, err)
			}
			if created {
				res.Created[content.KindHomepage] = 1
			} else {
				res.Skipped = append(res.Skipped, content.KindHomepage)
			}
			continue
		}
		coll, err := d.Lookup(strings.TrimSuffix(name, ".yaml"))
		if err != nil {
			return res, fmt.Errorf("%s: %w", p, err)
		}
		n, err := seedCollection(ctx, coll, data)
		if err != nil {
			return res, fmt.Errorf("%s: %w", p, err)
		}
		if n == 0 {
			res.Skipped = append(res.Skipped, coll.Kind())
			continue
		}
		res.Created[coll.Kind()] = n
	}
	return res, nil
}

func seedHomepage(ctx context.Context, store *content.Store, data []byte) (bool, error) {
	raw, err := store.GetSetting(ctx, content.HomepageKey)
	if err != nil {
		return false, err
	}
	if raw != "" {
		return false, nil
	}
	var home content.HomeContent
	if err := yaml.Unmarshal(data, &home); err != nil {
		return false, fmt.Errorf("decode: %w", err)
	}
	if _, err := store.Homepage.Save(ctx, home); err != nil {
		return false, err
	}
	return true, nil
}

// seedCollection creates every record of a fixture file through the
// collection, so fixtures go through the same validation as the admin
// panel and the API. Records are bridged from YAML to the JSON encoding
// the record types define.
func seedCollection(ctx context.Context, coll content.Collection, data []byte) (int, error) {
	existing, err := coll.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	var records []map[string]any
	if err := yaml.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}
	for i, rec := range records {
		doc, err := json.Marshal(rec)
		if err != nil {
			return i, fmt.Errorf("record %d: %w", i+1, err)
		}
		bind := func(v any) error {
			dec := json.NewDecoder(bytes.NewReader(doc))
			dec.DisallowUnknownFields()
			return dec.Decode(v)
		}
		if _, err := coll.Create(ctx, bind); err != nil {
			return i, fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return len(records), nil
}
