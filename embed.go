package metalworks

import "embed"

// EmbeddedAssets contains the static files served under /assets/:
// site.css and admin.js.
//
//go:embed assets/*
var EmbeddedAssets embed.FS
